package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"rera-gateway/internal/infra/logger"
)

const (
	defaultReplyWait    = 3 * time.Second
	defaultHistoryLimit = 5
)

// Options: зависимости и параметры Manager.
type Options struct {
	Dial  Dialer
	Store SessionStore
	// TargetBot: публичный username бота, которому пересылаются запросы (без @).
	TargetBot string
	// ReplyWait: пауза между отправкой запроса и чтением истории; 0 означает 3s по умолчанию.
	ReplyWait time.Duration
	// HistoryLimit: сколько последних сообщений просматривать в поисках ответа.
	HistoryLimit int
	// StrictReply отбрасывает входящие сообщения, не новее отправленного запроса.
	StrictReply bool
	// CallTimeout ограничивает каждый вызов адаптера; 0: без ограничения.
	CallTimeout time.Duration
	// Sleep подменяется в тестах; по умолчанию ждёт с учётом отмены ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// pendingAuth: незавершённый вход: телефон и выданный Telegram phone_code_hash.
type pendingAuth struct {
	phone        string
	codeHash     string
	needPassword bool // сервер уже ответил SESSION_PASSWORD_NEEDED на этот код
}

// Manager: единственная сессия процесса. Потокобезопасен.
type Manager struct {
	opts Options

	mu      sync.Mutex
	client  Client       // nil до первого обращения и после Logout
	pending *pendingAuth // не более одной на процесс
}

// NewManager проверяет зависимости и подставляет значения по умолчанию.
func NewManager(opts Options) (*Manager, error) {
	if opts.Dial == nil {
		return nil, errors.New("account: dialer is nil")
	}
	if opts.Store == nil {
		return nil, errors.New("account: session store is nil")
	}
	opts.TargetBot = strings.TrimPrefix(strings.TrimSpace(opts.TargetBot), "@")
	if opts.TargetBot == "" {
		return nil, errors.New("account: target bot is empty")
	}
	if opts.ReplyWait <= 0 {
		opts.ReplyWait = defaultReplyWait
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Manager{opts: opts}, nil
}

// TargetBot возвращает username бота, которому уходят запросы.
func (m *Manager) TargetBot() string { return m.opts.TargetBot }

// Warmup заранее поднимает клиент (при старте процесса), чтобы первый запрос не ждал соединения.
func (m *Manager) Warmup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.handleLocked(ctx)
	return err
}

// Close гасит клиент при завершении процесса. Повторный вызов безопасен.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dropClientLocked()
}

// handleLocked лениво создаёт клиент: из сохранённой сессии, если она есть, иначе анонимный.
func (m *Manager) handleLocked(ctx context.Context) (Client, error) {
	if m.client != nil {
		if m.client.Alive() {
			return m.client, nil
		}
		logger.Warn("Telegram client connection is dead, reconnecting")
		_ = m.dropClientLocked()
	}

	credential, err := m.opts.Store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}

	dialCtx, cancel := m.callCtx(ctx)
	defer cancel()

	client, err := m.opts.Dial(dialCtx, credential)
	if err != nil {
		return nil, transport("connect", err)
	}
	logger.Info("Telegram client connected", zap.Bool("restored_session", credential != ""))
	m.client = client
	return client, nil
}

func (m *Manager) dropClientLocked() error {
	if m.client == nil {
		return nil
	}
	client := m.client
	m.client = nil
	if err := client.Close(); err != nil {
		return errors.Wrap(err, "close client")
	}
	logger.Debug("Telegram client closed")
	return nil
}

// callCtx ограничивает один вызов адаптера настроенным таймаутом.
func (m *Manager) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.opts.CallTimeout)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// maskPhone оставляет в логах код страны и две последние цифры.
func maskPhone(phone string) string {
	const keepHead, keepTail = 4, 2
	if len(phone) <= keepHead+keepTail {
		return strings.Repeat("*", len(phone))
	}
	return phone[:keepHead] + strings.Repeat("*", len(phone)-keepHead-keepTail) + phone[len(phone)-keepTail:]
}
