// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/api"
	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain/solbc"
	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/sol-flywheel/internal/config"
	"github.com/rovshanmuradov/sol-flywheel/internal/flywheel"
	"github.com/rovshanmuradov/sol-flywheel/internal/jupiter"
	"github.com/rovshanmuradov/sol-flywheel/internal/lease"
	"github.com/rovshanmuradov/sol-flywheel/internal/logger"
	"github.com/rovshanmuradov/sol-flywheel/internal/metrics"
	"github.com/rovshanmuradov/sol-flywheel/internal/pumpportal"
	"github.com/rovshanmuradov/sol-flywheel/internal/scheduler"
)

// rpcMaxRetries - сколько раз узел RPC сам пересылает транзакцию лидеру.
const rpcMaxRetries = 3

// App - собранный граф компонентов.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector
	Runner   *flywheel.Runner

	shutdown *ShutdownHandler
}

// New собирает приложение из конфигурации. При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.File = cfg.LogFile
	logCfg.Development = cfg.LogDevelopment
	zl, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   zl,
		Registry: prometheus.NewRegistry(),
		shutdown: NewShutdownHandler(zl),
	}
	a.shutdown.AddFunc("logger", func() error { return logger.Sync(zl) })

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewCollector(a.Registry)

	chain := solbc.NewClient(cfg.RPCURL, zl)
	sender := transaction.NewManager(chain, zl, transaction.Config{
		MaxAttempts:    cfg.SendMaxAttempts,
		RPCMaxRetries:  rpcMaxRetries,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Commitment:     rpc.CommitmentConfirmed,
	}, a.Metrics)

	pipeline := flywheel.NewPipeline(
		chain,
		pumpportal.NewClient(cfg.PumpPortalURL, cfg.ClaimPriorityFee, cfg.HTTPTimeout, zl),
		jupiter.NewClient(cfg.JupiterURL, cfg.HTTPTimeout, zl),
		sender,
		a.Metrics,
		zl,
	)

	locker, closeLease, err := lease.Open(ctx, cfg.RedisURL, cfg.LeaseTTL, zl)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	a.shutdown.AddFunc("lease", closeLease)

	a.Runner = flywheel.NewRunner(cfg, pipeline, locker, zl)
	return a, nil
}

// Server создаёт HTTP-сервер поверх Runner.
func (a *App) Server() *api.Server {
	return api.NewServer(api.Config{
		ListenAddr: a.Config.ListenAddr,
		CronKey:    a.Config.CronKey,
	}, a.Runner, a.Metrics, a.Registry, a.Logger)
}

// Scheduler создаёт планировщик для CRON_SCHEDULE. Возвращает nil, если расписание не задано.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	if a.Config.CronSchedule == "" {
		return nil, nil
	}
	return scheduler.New(a.Config.CronSchedule, a.scheduledRun, a.Logger)
}

func (a *App) scheduledRun(ctx context.Context) {
	runScheduled(ctx, a.Runner, a.Metrics, a.Logger)
}

// runScheduled выполняет запуск по расписанию. Как и HTTP-триггер, запуск
// отвязан от отмены ctx: отправленные транзакции дожидаются подтверждения,
// а Scheduler.Run ждёт завершения задачи при остановке.
func runScheduled(ctx context.Context, trigger api.Trigger, recorder api.Recorder, logger *zap.Logger) {
	res, err := trigger.Trigger(context.WithoutCancel(ctx))
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			recorder.LeaseDenied()
			logger.Warn("Scheduled run skipped: previous run still holds the lease")
			return
		}
		logger.Error("Scheduled run failed to start", zap.Error(err))
		return
	}
	logger.Info("Scheduled run finished",
		zap.String("run_id", res.RunID),
		zap.String("result", res.Label()),
		zap.Duration("took", res.Finished.Sub(res.Started)))
}

// Close освобождает ресурсы приложения.
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return a.shutdown.Shutdown(ctx)
}
