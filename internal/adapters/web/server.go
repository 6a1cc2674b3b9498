// Package web реализует HTTP-поверхность шлюза, JSON-эндпоинты авторизации, статуса сессии и
// пересылки запросов боту. Все маршруты, кроме /health, требуют заголовок X-API-Key.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rera-gateway/internal/domain/account"
	"rera-gateway/internal/infra/logger"
)

// Service: операции ядра, которые обслуживает HTTP-слой.
type Service interface {
	RequestCode(ctx context.Context, phone string) (account.CodeRequest, error)
	VerifyCode(ctx context.Context, phone, code, password string) (account.Verification, error)
	Status(ctx context.Context) account.Status
	Lookup(ctx context.Context, query string) (account.LookupResult, error)
	Logout(ctx context.Context) error
	TargetBot() string
}

// Options: параметры HTTP-сервера.
type Options struct {
	Address      string
	APIKey       string
	AllowOrigins []string
}

// Server представляет HTTP-сервер шлюза
type Server struct {
	srv     *http.Server
	service Service
	apiKey  string
	origins []string
}

const (
	readTimeout = 15 * time.Second
	// Lookup держит запрос на время ожидания ответа бота, поэтому запас на запись больше.
	writeTimeout = 90 * time.Second
	idleTimeout  = 60 * time.Second
)

// NewServer создает новый HTTP-сервер
func NewServer(service Service, opts Options) *Server {
	s := &Server{
		service: service,
		apiKey:  opts.APIKey,
		origins: opts.AllowOrigins,
	}

	s.srv = &http.Server{
		Addr:         opts.Address,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

// Handler собирает маршрутизатор со всеми middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Публичные эндпоинты (без ключа)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Защищенные эндпоинты
	mux.Handle("GET /session/status", s.apiKeyMiddleware(http.HandlerFunc(s.handleSessionStatus)))
	mux.Handle("POST /auth/start", s.apiKeyMiddleware(http.HandlerFunc(s.handleAuthStart)))
	mux.Handle("POST /auth/verify", s.apiKeyMiddleware(http.HandlerFunc(s.handleAuthVerify)))
	mux.Handle("POST /rera/lookup", s.apiKeyMiddleware(http.HandlerFunc(s.handleLookup)))
	mux.Handle("POST /auth/logout", s.apiKeyMiddleware(http.HandlerFunc(s.handleLogout)))

	return loggingMiddleware(s.corsMiddleware(mux))
}

// Start запускает HTTP-сервер и блокируется до его остановки
func (s *Server) Start() error {
	logger.Info("Starting HTTP server", zap.String("address", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown корректно останавливает HTTP-сервер
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server...")
	return s.srv.Shutdown(ctx)
}
