// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"lxagent/internal/provider"
	"lxagent/internal/tools"
	"lxagent/pkg/logger"
)

// Fatal configuration errors reported at initialization.
var (
	// ErrNoLLMService means no usable LLM service is configured.
	ErrNoLLMService = errors.New("no LLM service configured")
	// ErrNoProviderService means no tool provider is enabled.
	ErrNoProviderService = errors.New("no tool provider enabled")
)

// Config is the root configuration document, read-only after startup.
type Config struct {
	Version  string         `mapstructure:"version" yaml:"version"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	MCP      MCPConfig      `mapstructure:"mcp" yaml:"mcp"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
	Context  ContextConfig  `mapstructure:"context" yaml:"context"`
	Gateway  GatewayConfig  `mapstructure:"gateway" yaml:"gateway"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Cron     CronConfig     `mapstructure:"cron" yaml:"cron"`
	Tools    ToolsConfig    `mapstructure:"tools" yaml:"tools"`
}

// LogConfig configures logging output and rotation hints.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	File        string `mapstructure:"file" yaml:"file"`
	Format      string `mapstructure:"format" yaml:"format"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	BackupCount int    `mapstructure:"backup_count" yaml:"backup_count"`
}

// ToLogger converts to the process logger configuration.
func (c LogConfig) ToLogger() logger.LogConfig {
	return logger.LogConfig{
		Level:  c.Level,
		Format: c.Format,
		File:   c.File,
	}
}

// LLMConfig selects the default LLM service from a named table.
type LLMConfig struct {
	Default  string                            `mapstructure:"default" yaml:"default"`
	Services map[string]provider.ServiceConfig `mapstructure:"services" yaml:"services"`
}

// MCPConfig configures the tool providers and the routing strategy.
type MCPConfig struct {
	RoutingStrategy string                      `mapstructure:"routing_strategy" yaml:"routing_strategy"`
	Services        map[string]MCPServiceConfig `mapstructure:"services" yaml:"services"`
}

// MCPServiceConfig configures one tool provider.
type MCPServiceConfig struct {
	Type              string   `mapstructure:"type" yaml:"type"` // local | cloud
	Enabled           *bool    `mapstructure:"enabled" yaml:"enabled"`
	Priority          int      `mapstructure:"priority" yaml:"priority"`
	URL               string   `mapstructure:"url" yaml:"url"`
	APIKey            string   `mapstructure:"api_key" yaml:"api_key"`
	Capabilities      []string `mapstructure:"capabilities" yaml:"capabilities"`
	Streamable        bool     `mapstructure:"streamable" yaml:"streamable"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries        int      `mapstructure:"max_retries" yaml:"max_retries"`
	CallRetries       int      `mapstructure:"call_retries" yaml:"call_retries"`
	RetryDelaySeconds int      `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	MinServerVersion  string   `mapstructure:"min_server_version" yaml:"min_server_version"`
}

// IsEnabled reports whether the service is enabled; unset defaults to true.
func (c MCPServiceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Timeout returns the per-call timeout.
func (c MCPServiceConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the delay between call retries.
func (c MCPServiceConfig) RetryDelay() time.Duration {
	if c.RetryDelaySeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// SecurityConfig governs the dangerous-tool confirmation policy.
type SecurityConfig struct {
	ShellConfirm            bool     `mapstructure:"shell_confirm" yaml:"shell_confirm"`
	AutoContinueDangerous   bool     `mapstructure:"auto_continue_dangerous" yaml:"auto_continue_dangerous"`
	AutoContinueInteractive bool     `mapstructure:"auto_continue_interactive" yaml:"auto_continue_interactive"`
	DangerousTools          []string `mapstructure:"dangerous_tools" yaml:"dangerous_tools"`
}

// ContextConfig bounds the loop and the history token budget.
type ContextConfig struct {
	MaxRounds      int `mapstructure:"max_rounds" yaml:"max_rounds"`
	MaxTokens      int `mapstructure:"max_tokens" yaml:"max_tokens"`
	ReservedTokens int `mapstructure:"reserved_tokens" yaml:"reserved_tokens"`
}

// GatewayConfig configures the HTTP API surface.
type GatewayConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns the listen address.
func (c GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CronConfig declares scheduled goals.
type CronConfig struct {
	Enabled bool      `mapstructure:"enabled" yaml:"enabled"`
	Jobs    []CronJob `mapstructure:"jobs" yaml:"jobs"`
}

// CronJob is one scheduled goal.
type CronJob struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	Command  string `mapstructure:"command" yaml:"command"`
	MaxSteps int    `mapstructure:"max_steps" yaml:"max_steps"`
}

// ToolsConfig declares user-defined tools.
type ToolsConfig struct {
	Scripts []tools.ScriptSpec `mapstructure:"scripts" yaml:"scripts"`
}

// setDefaults registers the default values on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")
	v.SetDefault("mcp.routing_strategy", "capability_match")
	v.SetDefault("security.shell_confirm", true)
	v.SetDefault("security.auto_continue_dangerous", false)
	v.SetDefault("security.auto_continue_interactive", false)
	v.SetDefault("security.dangerous_tools", []string{"execute_shell", "start_process"})
	v.SetDefault("context.max_rounds", 10)
	v.SetDefault("context.max_tokens", 4096)
	v.SetDefault("context.reserved_tokens", 1000)
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the configuration file at path and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) || errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the process refuses to start without.
func (c *Config) Validate() error {
	if len(c.LLM.Services) == 0 {
		return ErrNoLLMService
	}
	if c.LLM.Default == "" {
		return fmt.Errorf("%w: llm.default is not set", ErrNoLLMService)
	}
	svc, ok := c.LLM.Services[c.LLM.Default]
	if !ok {
		return fmt.Errorf("%w: llm.default %q has no service entry", ErrNoLLMService, c.LLM.Default)
	}
	if svc.Model == "" {
		return fmt.Errorf("%w: service %q has no model", ErrNoLLMService, c.LLM.Default)
	}
	if svc.Type != provider.TypeLocal && svc.APIKey == "" && svc.BaseURL == "" {
		return fmt.Errorf("%w: service %q has no credentials", ErrNoLLMService, c.LLM.Default)
	}

	enabled := 0
	for name, m := range c.MCP.Services {
		if !m.IsEnabled() {
			continue
		}
		enabled++
		if m.Type == "cloud" && m.URL == "" {
			return fmt.Errorf("mcp service %q: cloud service requires a url", name)
		}
	}
	if enabled == 0 {
		return ErrNoProviderService
	}

	switch strings.ToLower(c.MCP.RoutingStrategy) {
	case "capability_match", "priority_first", "load_balance":
	default:
		return fmt.Errorf("unknown routing strategy: %s", c.MCP.RoutingStrategy)
	}

	return nil
}

// Dump renders the configuration as YAML with secrets redacted, for the
// verbose debug log.
func (c *Config) Dump() (string, error) {
	clone := *c
	clone.LLM.Services = make(map[string]provider.ServiceConfig, len(c.LLM.Services))
	for name, svc := range c.LLM.Services {
		if svc.APIKey != "" {
			svc.APIKey = "***"
		}
		clone.LLM.Services[name] = svc
	}
	clone.MCP.Services = make(map[string]MCPServiceConfig, len(c.MCP.Services))
	for name, svc := range c.MCP.Services {
		if svc.APIKey != "" {
			svc.APIKey = "***"
		}
		clone.MCP.Services[name] = svc
	}

	data, err := yaml.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// Save writes the configuration back to disk as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return home + "/.lxagent/config.yaml", nil
}
