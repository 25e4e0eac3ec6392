package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lxagent/internal/agent"
	"lxagent/internal/agent/types"
	"lxagent/internal/config"
	"lxagent/internal/cron"
	"lxagent/internal/gateway"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
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

			server := gateway.NewServer(gateway.Deps{
				Config:     cfg,
				Router:     app.Router,
				Providers:  app.Providers,
				Planner:    app.Planner,
				Sessions:   app.Sessions,
				RunQueue:   app.RunQueue,
				ContextMgr: app.ContextMgr,
			})

			if cfg.Cron.Enabled && len(cfg.Cron.Jobs) > 0 {
				scheduler := cron.NewScheduler(cfg.Cron.Jobs, cronRunner(app))
				if err := scheduler.Start(); err != nil {
					return err
				}
				defer scheduler.Stop()
			}

			if path := configPathInUse(); path != "" {
				if watcher, err := config.NewWatcher(path); err == nil {
					// The running server keeps its startup configuration;
					// the watcher only surfaces that the file changed.
					watcher.OnChange(func(*config.Config) {
						slog.Info("config changed on disk; restart to apply provider changes")
					})
					if err := watcher.Start(ctx); err != nil {
						slog.Warn("config watcher not started", "error", err)
					}
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				slog.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
}

// cronRunner adapts the app into the cron scheduler's run function.
func cronRunner(app *App) cron.RunFunc {
	return func(ctx context.Context, job config.CronJob) (types.Result, error) {
		sessionID := cron.SessionID(job)
		sess := app.Sessions.GetOrCreate(sessionID)

		loop := agent.New(app.Router, app.Planner, app.ContextMgr,
			&agent.AutoInteractor{AllowDangerous: app.Config.Security.AutoContinueDangerous},
			agent.Config{
				MaxSteps:                job.MaxSteps,
				AutoContinue:            true,
				DangerousTools:          app.Config.Security.DangerousTools,
				ShellConfirm:            app.Config.Security.ShellConfirm,
				AutoContinueDangerous:   app.Config.Security.AutoContinueDangerous,
				AutoContinueInteractive: true,
			})

		var result types.Result
		err := app.RunQueue.Run(sess.ID, ctx, func(runCtx context.Context) error {
			current, err := app.Sessions.Get(sess.ID)
			if err != nil {
				return err
			}
			result = loop.Run(runCtx, job.Command, current.History)
			return app.Sessions.Update(sess.ID, job.Command, result.Results)
		})
		return result, err
	}
}

// configPathInUse resolves the effective config path for the watcher.
func configPathInUse() string {
	if globalFlags.ConfigPath != "" {
		return globalFlags.ConfigPath
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}
