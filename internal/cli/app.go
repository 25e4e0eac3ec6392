package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"lxagent/internal/config"
	internalContext "lxagent/internal/context"
	"lxagent/internal/mcp/client"
	"lxagent/internal/provider"
	"lxagent/internal/router"
	"lxagent/internal/session"
	"lxagent/internal/tools"
	"lxagent/internal/tools/builtin"
)

// App bundles the subsystems constructed from configuration.
type App struct {
	Config     *config.Config
	Providers  *provider.Registry
	Planner    *provider.Planner
	Router     *router.Router
	Sessions   *session.Manager
	RunQueue   *session.RunQueue
	ContextMgr *internalContext.Manager
}

// BuildApp wires the application from configuration. Fatal configuration
// problems (no providers, missing credentials) surface here, before any
// request is served.
func BuildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	registry, err := provider.NewRegistry(cfg.LLM.Default, cfg.LLM.Services)
	if err != nil {
		return nil, fmt.Errorf("init LLM services: %w", err)
	}
	defaultProvider, err := registry.Default()
	if err != nil {
		return nil, err
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, config.ErrNoProviderService
	}

	return &App{
		Config:     cfg,
		Providers:  registry,
		Planner:    provider.NewPlanner(defaultProvider),
		Router:     router.New(router.Strategy(cfg.MCP.RoutingStrategy), providers...),
		Sessions:   session.NewManager(),
		RunQueue:   session.NewRunQueue(10, 5*time.Minute),
		ContextMgr: internalContext.NewManager(internalContext.Config{
			MaxTokens:      cfg.Context.MaxTokens,
			ReservedTokens: cfg.Context.ReservedTokens,
		}),
	}, nil
}

// buildProviders constructs the tool providers in configured order.
// Viper lowercases map keys, so the configured order is re-derived by
// sorting: local providers first, then by priority, then by name.
func buildProviders(ctx context.Context, cfg *config.Config) ([]router.Provider, error) {
	var locals []router.Provider
	var remotes []router.Provider

	for name, svc := range cfg.MCP.Services {
		if !svc.IsEnabled() {
			slog.Info("tool provider disabled, skipping", "name", name)
			continue
		}

		switch strings.ToLower(svc.Type) {
		case "local", "":
			modules := builtin.Modules()
			if len(cfg.Tools.Scripts) > 0 {
				modules = append(modules, tools.ScriptModule(cfg.Tools.Scripts))
			}
			local, err := router.NewLocalProvider(name, svc.Priority, modules)
			if err != nil {
				return nil, fmt.Errorf("local provider %s: %w", name, err)
			}
			locals = append(locals, local)

		case "cloud":
			sess := client.New(name, client.Config{
				URL:              svc.URL,
				Headers:          authHeaders(svc.APIKey),
				Streamable:       svc.Streamable,
				CallTimeout:      svc.Timeout(),
				MaxRetries:       svc.MaxRetries,
				CallRetries:      svc.CallRetries,
				RetryDelay:       svc.RetryDelay(),
				MinServerVersion: svc.MinServerVersion,
			})
			remote := router.NewRemoteProvider(name, svc.Priority, svc.Capabilities, sess)
			// A dead remote at startup is skipped, not fatal; the local
			// provider keeps the process useful.
			if err := remote.Connect(ctx); err != nil {
				slog.Warn("remote provider connect failed, skipping",
					"name", name, "error", err)
				continue
			}
			remotes = append(remotes, remote)

		default:
			slog.Warn("unknown tool provider type, skipping",
				"name", name, "type", svc.Type)
		}
	}

	sortProviders(locals)
	sortProviders(remotes)
	return append(locals, remotes...), nil
}

func sortProviders(providers []router.Provider) {
	sort.SliceStable(providers, func(i, j int) bool {
		if providers[i].Priority() != providers[j].Priority() {
			return providers[i].Priority() > providers[j].Priority()
		}
		return providers[i].ID() < providers[j].ID()
	})
}

func authHeaders(apiKey string) map[string]string {
	if apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

// Close releases provider connections.
func (a *App) Close() {
	a.Router.Close()
}
