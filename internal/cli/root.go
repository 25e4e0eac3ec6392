// Package cli implements the lxagent command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lxagent/internal/config"
	"lxagent/pkg/logger"
)

// GlobalFlags holds the flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
}

var globalFlags GlobalFlags

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lxagent",
		Short: "lxagent - LLM-driven tool-execution orchestrator",
		Long: `lxagent drives a language model through iterative tool execution:
the model proposes one tool call at a time, lxagent routes it to a local
or remote tool provider, feeds the result back, and summarizes progress
until the goal is complete.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewToolsCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// loadConfig resolves the config path and loads the configuration, also
// initializing the process logger.
func loadConfig() (*config.Config, error) {
	path := globalFlags.ConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log.ToLogger()
	if globalFlags.Verbose {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if globalFlags.Verbose {
		if dump, err := cfg.Dump(); err == nil {
			logger.Debug().Str("config", dump).Msg("effective configuration")
		}
	}

	return cfg, nil
}

// Execute runs the CLI. Exit code 0 means success or user exit; 1 means
// an initialization or runtime failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
