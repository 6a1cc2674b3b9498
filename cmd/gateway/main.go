package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"rera-gateway/internal/app"
	"rera-gateway/internal/infra/config"
	"rera-gateway/internal/infra/logger"
	"rera-gateway/internal/infra/pr"
	"rera-gateway/internal/support/version"
)

func main() {
	// envPath определяет расположение .env с секретами и общими настройками.
	envPath := flag.String("env", ".env", "path to .env file")
	login := flag.Bool("login", false, "interactive Telegram login in the terminal, then exit")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	env := config.Env()

	logger.Init(env.LogLevel)
	logger.InitFile(logger.FileOptions{
		Path:       env.LogFile,
		Level:      env.LogFileLevel,
		MaxSizeMB:  env.LogFileMaxSize,
		MaxBackups: env.LogFileMaxBackups,
		MaxAgeDays: env.LogFileMaxAge,
		Compress:   env.LogFileCompress,
	})
	defer logger.Sync()

	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}
	if logger.IsDebugEnabled() {
		logger.Debug("Loaded configuration\n" + pr.Pf(env.Redacted()))
	}
	logger.Info("RERA gateway starting", zap.String("version", version.Version))

	// Контекст с обработкой системных сигналов (Ctrl+C/SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.NewApp(env)
	if err := a.Init(); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("app close failed", zap.Error(err))
		}
	}()

	if *login {
		runLogin(ctx, a)
		return
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("app run failed", zap.Error(err))
		return
	}
	logger.Info("Graceful shutdown complete")
}

// runLogin переводит вывод логгера в readline, чтобы логи не ломали приглашение ввода.
func runLogin(ctx context.Context, a *app.App) {
	if err := pr.Init(); err != nil {
		logger.Error("failed to init terminal", zap.Error(err))
		return
	}
	logger.SetWriters(pr.Stdout(), pr.Stderr())
	defer func() {
		logger.SetWriters(os.Stdout, os.Stderr)
		pr.Close()
	}()

	// Ctrl+C прерывает ожидание ввода.
	go func() {
		<-ctx.Done()
		pr.InterruptReadline()
	}()

	if err := a.Login(ctx); err != nil {
		logger.Error("interactive login failed", zap.Error(err))
	}
}
