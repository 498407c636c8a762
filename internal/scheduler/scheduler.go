// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job - задача, запускаемая по расписанию.
type Job func(ctx context.Context)

// Scheduler запускает Job по cron-расписанию (UTC). Пока предыдущий запуск
// не завершён, следующий пропускается.
type Scheduler struct {
	cron     *cron.Cron
	job      Job
	schedule string
	logger   *zap.Logger

	mu  sync.Mutex
	ctx context.Context
}

// New разбирает расписание в стандартном 5-польном формате или дескриптор (@hourly, @every 10m).
func New(spec string, job Job, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		job:      job,
		schedule: spec,
		logger:   logger.Named("scheduler"),
		ctx:      context.Background(),
	}
	adapter := cronLogger{logger: s.logger.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run запускает планировщик и блокируется до отмены ctx,
// после чего дожидается завершения текущего запуска.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("schedule", s.schedule))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	s.job(ctx)
}

// cronLogger адаптирует zap к cron.Logger. Служебные сообщения cron идут в debug.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
