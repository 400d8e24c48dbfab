package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ls-lnb/tg-bookmarks/internal/adapters/driving/http"
	"github.com/ls-lnb/tg-bookmarks/internal/config"
	"github.com/ls-lnb/tg-bookmarks/internal/worker"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Mode string
}

// NewServeCommand runs the HTTP API, the periodic sync worker, or both.
func NewServeCommand(root *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browsing API and/or the periodic sync worker",
		Long: `Run the long-lived process.

Modes:
  api     HTTP API only (sync is still triggerable via POST /api/v1/sync)
  worker  periodic sync worker only
  all     both (default)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "", "run mode: api, worker or all (overrides server.mode)")

	return cmd
}

func runServe(ctx context.Context, root *RootOptions, opts *ServeOptions) error {
	a, err := loadApp(ctx, root.ConfigPath)
	if err != nil {
		return err
	}
	defer a.Close()

	mode := a.cfg.Server.Mode
	if opts.Mode != "" {
		mode = opts.Mode
	}
	switch mode {
	case config.ModeAPI, config.ModeWorker, config.ModeAll:
	default:
		return fmt.Errorf("invalid mode %q: must be api, worker or all", mode)
	}
	a.logger.Info("starting tg-bookmarks", "version", version, "mode", mode)

	var w *worker.Worker
	if mode == config.ModeWorker || mode == config.ModeAll {
		if a.cfg.Sync.Interval > 0 {
			w = worker.NewWorker(worker.WorkerConfig{
				Orchestrator: a.orchestrator,
				Logger:       a.logger,
				Interval:     a.cfg.Sync.Interval,
				RunOnStart:   a.cfg.Sync.RunOnStart,
			})
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
		} else if mode == config.ModeWorker {
			return fmt.Errorf("worker mode needs sync.interval > 0")
		} else {
			a.logger.Info("sync worker disabled", "reason", "sync.interval is 0")
		}
	}

	if mode == config.ModeWorker {
		<-ctx.Done()
		a.logger.Info("shutting down")
		return nil
	}

	server := http.NewServer(http.Config{
		Host:           a.cfg.Server.Host,
		Port:           a.cfg.Server.Port,
		Version:        version,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		Logger:         a.logger,
	}, a.bookmarks, a.media, a.auth, a.orchestrator)

	return server.Start(ctx)
}
