// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/flywheel"
)

const shutdownTimeout = 30 * time.Second

// Trigger запускает флайвил.
type Trigger interface {
	Trigger(ctx context.Context) (*flywheel.Result, error)
}

// Recorder получает события, которые видны только на уровне HTTP.
type Recorder interface {
	LeaseDenied()
}

// Config - параметры HTTP-сервера.
type Config struct {
	ListenAddr string
	CronKey    string
}

// Server обслуживает триггер флайвила, /healthz и /metrics.
type Server struct {
	echo     *echo.Echo
	addr     string
	trigger  Trigger
	recorder Recorder
	logger   *zap.Logger
}

// NewServer собирает echo с маршрутами. gatherer может быть nil: тогда /metrics не регистрируется.
func NewServer(cfg Config, trigger Trigger, recorder Recorder, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		echo:     echo.New(),
		addr:     cfg.ListenAddr,
		trigger:  trigger,
		recorder: recorder,
		logger:   logger.Named("api"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(s.requestLogger())

	s.echo.Any("/api/flywheel", s.handleTrigger, RequireCronKey(cfg.CronKey))
	s.echo.GET("/healthz", handleHealth)
	if gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// ServeHTTP позволяет использовать Server как http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run слушает адрес до отмены ctx, затем корректно завершает текущие запросы.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.addr))
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start echo server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown echo server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// requestLogger пишет путь без строки запроса: в ней может быть секрет.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.logger.Info("request", fields...)
			return nil
		},
	})
}
