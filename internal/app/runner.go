package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rera-gateway/internal/infra/logger"
)

const (
	serverShutdownTimeout = 10 * time.Second
	warmupTimeout         = 30 * time.Second
)

// warmer: прогрев клиента при старте.
type warmer interface {
	Warmup(ctx context.Context) error
}

// server: HTTP-сервер с блокирующим Start и корректной остановкой.
type server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Runner инкапсулирует сценарий запуска и остановки: прогрев клиента, обслуживание
// HTTP до отмены контекста и graceful shutdown сервера.
type Runner struct {
	core   warmer
	server server
}

// NewRunner подготавливает Runner.
func NewRunner(core warmer, srv server) *Runner {
	return &Runner{core: core, server: srv}
}

// Run блокируется до отмены ctx или падения сервера. Сервер стартует сразу, прогрев
// клиента идёт в фоне и не задерживает /health. Ошибка прогрева не фатальна:
// клиент будет создан лениво при первом запросе.
func (r *Runner) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- r.server.Start()
	}()

	warmCtx, cancelWarm := context.WithTimeout(ctx, warmupTimeout)
	warmDone := make(chan struct{})
	go func() {
		defer close(warmDone)
		if err := r.core.Warmup(warmCtx); err != nil {
			logger.Warn("Telegram client warm-up failed", zap.Error(err))
		}
	}()
	defer func() {
		cancelWarm()
		<-warmDone
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Debug("Shutdown signal received, stopping HTTP server...")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer stop()
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	return <-serveErr
}
