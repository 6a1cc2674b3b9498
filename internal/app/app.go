// Package app собирает шлюз: конфигурация, хранилище сессии,
// MTProto-адаптер, ядро (account.Manager) и HTTP-сервер. Отсюда стартует обслуживание
// запросов и обеспечивается корректный shutdown.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rera-gateway/internal/adapters/cli"
	"rera-gateway/internal/adapters/telegram/mtproto"
	"rera-gateway/internal/adapters/web"
	"rera-gateway/internal/domain/account"
	"rera-gateway/internal/infra/config"
	"rera-gateway/internal/infra/logger"
	"rera-gateway/internal/infra/telegram/session"
)

// App агрегирует зависимости шлюза и управляет их связью.
type App struct {
	cfg     config.EnvConfig
	store   session.Store
	manager *account.Manager
}

// NewApp создаёт пустой каркас приложения. Фактическая инициализация выполняется в Init().
func NewApp(cfg config.EnvConfig) *App {
	return &App{cfg: cfg}
}

// Init открывает хранилище сессии и собирает ядро поверх MTProto-адаптера.
func (a *App) Init() error {
	store, err := session.Open(a.cfg.SessionBackend, a.cfg.SessionFile)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	a.store = store

	dial := mtproto.NewDialer(mtproto.Options{
		APIID:       a.cfg.APIID,
		APIHash:     a.cfg.APIHash,
		TestDC:      a.cfg.TestDC,
		ThrottleRPS: a.cfg.ThrottleRPS,
	})

	manager, err := account.NewManager(account.Options{
		Dial:         dial,
		Store:        store,
		TargetBot:    a.cfg.TargetBot,
		ReplyWait:    a.cfg.LookupReplyWait,
		HistoryLimit: a.cfg.LookupHistoryLimit,
		StrictReply:  a.cfg.LookupStrictReply,
		CallTimeout:  a.cfg.CallTimeout,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("init account manager: %w", err)
	}
	a.manager = manager

	logger.Info("Gateway initialized",
		zap.String("session_backend", a.cfg.SessionBackend),
		zap.String("target_bot", manager.TargetBot()),
	)
	return nil
}

// Run запускает HTTP-сервер и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	server := web.NewServer(a.manager, web.Options{
		Address:      a.cfg.HTTPAddress,
		APIKey:       a.cfg.APIKey,
		AllowOrigins: a.cfg.CORSAllowOrigins,
	})
	return NewRunner(a.manager, server).Run(ctx)
}

// Login проводит интерактивный вход из терминала и завершается.
func (a *App) Login(ctx context.Context) error {
	if !cli.IsTerminal() {
		return errors.New("interactive login requires a terminal")
	}
	return cli.Login(ctx, a.manager, cli.TerminalPrompter{})
}

// Close гасит MTProto-клиента и закрывает хранилище сессии.
func (a *App) Close() error {
	var errs []error
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
	}
	return errors.Join(errs...)
}
