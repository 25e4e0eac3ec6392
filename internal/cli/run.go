package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lxagent/internal/agent"
	"lxagent/internal/agent/types"
)

// NewRunCmd creates the run command: an interactive goal loop on the
// terminal.
func NewRunCmd() *cobra.Command {
	var (
		goal         string
		maxSteps     int
		autoContinue bool
	)

	cmd := &cobra.Command{
		Use:   "run [goal]",
		Short: "Run goals interactively from the terminal",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := BuildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			var interactor agent.Interactor
			if Interactive() {
				interactor = NewTerminalInteractor()
			} else {
				interactor = &agent.AutoInteractor{
					AllowDangerous: cfg.Security.AutoContinueDangerous,
					Sink:           func(chunk string) { fmt.Print(chunk) },
				}
				autoContinue = true
			}

			if maxSteps <= 0 {
				maxSteps = cfg.Context.MaxRounds
			}

			runOnce := func(goal string, history []types.HistoryEntry) []types.HistoryEntry {
				loop := agent.New(app.Router, app.Planner, app.ContextMgr, interactor, agent.Config{
					MaxSteps:                maxSteps,
					AutoContinue:            autoContinue,
					DangerousTools:          cfg.Security.DangerousTools,
					ShellConfirm:            cfg.Security.ShellConfirm,
					AutoContinueDangerous:   cfg.Security.AutoContinueDangerous,
					AutoContinueInteractive: cfg.Security.AutoContinueInteractive,
				})
				result := loop.Run(ctx, goal, history)
				fmt.Printf("\n\n[%s] %d steps recorded\n", result.Status, len(result.Results))
				return result.Results
			}

			if goal == "" && len(args) > 0 {
				goal = strings.Join(args, " ")
			}
			if goal != "" {
				runOnce(goal, nil)
				return nil
			}

			// REPL: read goals until exit.
			var history []types.HistoryEntry
			reader := NewTerminalInteractor()
			for {
				fmt.Print("\ngoal> ")
				line, err := reader.readLine(ctx)
				if err != nil {
					return nil
				}
				switch strings.ToLower(line) {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "clear":
					history = nil
					fmt.Println("history cleared")
					continue
				}
				history = runOnce(line, history)
			}
		},
	}

	cmd.Flags().StringVarP(&goal, "goal", "g", "", "goal to execute (non-interactive)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "maximum loop steps (default from config)")
	cmd.Flags().BoolVar(&autoContinue, "auto", false, "continue steps without prompting")

	return cmd
}
