// internal/app/shutdown.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// CloseFunc - функция освобождения ресурса.
type CloseFunc func() error

type namedCloser struct {
	name  string
	close CloseFunc
}

// ShutdownHandler закрывает зарегистрированные ресурсы в обратном порядке (LIFO).
type ShutdownHandler struct {
	logger  *zap.Logger
	mu      sync.Mutex
	closers []namedCloser
}

// NewShutdownHandler создаёт пустой обработчик.
func NewShutdownHandler(logger *zap.Logger) *ShutdownHandler {
	return &ShutdownHandler{logger: logger.Named("shutdown")}
}

// AddFunc регистрирует функцию закрытия.
func (sh *ShutdownHandler) AddFunc(name string, fn CloseFunc) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.closers = append(sh.closers, namedCloser{name: name, close: fn})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// Shutdown закрывает ресурсы по одному, от последнего к первому. Ресурс,
// не закрывшийся до отмены ctx, считается ошибкой, остальные всё равно закрываются.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	closers := sh.closers
	sh.closers = nil
	sh.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		done := make(chan error, 1)
		go func() { done <- c.close() }()

		select {
		case err := <-done:
			if err != nil {
				sh.logger.Error("Failed to shutdown service", zap.String("service", c.name), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				continue
			}
			sh.logger.Debug("Service shutdown complete", zap.String("service", c.name))
		case <-ctx.Done():
			sh.logger.Error("Shutdown timeout for service", zap.String("service", c.name))
			errs = append(errs, fmt.Errorf("%s: shutdown timeout", c.name))
		}
	}
	return errors.Join(errs...)
}
