// cmd/flywheel/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/sol-flywheel/internal/app"
	"github.com/rovshanmuradov/sol-flywheel/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger and the optional in-process schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	sched, err := a.Scheduler()
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Server().Run(gCtx) })
	if sched != nil {
		g.Go(func() error { return sched.Run(gCtx) })
	}

	a.Logger.Info("Flywheel started",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("cron_schedule", cfg.CronSchedule),
		zap.Bool("auth", cfg.CronKey != ""))

	err = g.Wait()
	if err != nil {
		a.Logger.Error("Flywheel stopped with error", zap.Error(err))
	} else {
		a.Logger.Info("Flywheel stopped")
	}
	return err
}
