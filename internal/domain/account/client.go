// Package account содержит ядро шлюза: единственную пользовательскую MTProto-сессию процесса.
// Manager владеет живым клиентом (Client Handle), незавершённой авторизацией
// (Pending Authentication) и хранилищем учётных данных. Он реализует:
//   - машину состояний входа: Unauthenticated → CodeRequested [→ TwoFactorRequired] → Authenticated;
//   - пересылку текстового запроса фиксированному боту и чтение его ответа.
//
// Все операции выполняются под одним мьютексом: в процессе имеет смысл только одна
// авторизованная личность и один запрошенный код подтверждения.
package account

import (
	"context"

	"github.com/go-faster/errors"
)

// Account: сведения о залогиненном пользователе.
type Account struct {
	ID       int64
	Phone    string
	Username string
}

// Peer: разрешённый собеседник. Handle непрозрачен для ядра и принадлежит адаптеру.
type Peer struct {
	ID       int64
	Username string
	Handle   any
}

// Message: сообщение из истории переписки.
type Message struct {
	ID   int
	Out  bool // отправлено нами
	Text string
}

// Client: возможности MTProto-клиента, которые нужны ядру.
// Реализация живёт в адаптере поверх gotd; в тестах подменяется фейком.
type Client interface {
	// Authorized сверяет статус авторизации с сервером (не с локальной памятью).
	Authorized(ctx context.Context) (bool, error)
	Self(ctx context.Context) (Account, error)
	// SendCode запрашивает код подтверждения и возвращает phone_code_hash.
	SendCode(ctx context.Context, phone string) (string, error)
	// SignIn возвращает ErrPasswordRequired, если включена 2FA, и ErrInvalidCode для неверного кода.
	SignIn(ctx context.Context, phone, code, codeHash string) error
	// SignInPassword возвращает ErrInvalidPassword для неверного пароля.
	SignInPassword(ctx context.Context, password string) error
	ResolveUsername(ctx context.Context, username string) (Peer, error)
	// SendMessage возвращает id отправленного сообщения (0, если сервер его не сообщил).
	SendMessage(ctx context.Context, peer Peer, text string) (int, error)
	// RecentMessages возвращает последние limit сообщений, новые первыми.
	RecentMessages(ctx context.Context, peer Peer, limit int) ([]Message, error)
	LogOut(ctx context.Context) error
	// SessionString сериализует текущую сессию для восстановления после рестарта.
	SessionString(ctx context.Context) (string, error)
	// Alive: false, если фоновое соединение завершилось и клиент надо пересоздать.
	Alive() bool
	Close() error
}

// Dialer создаёт подключённый Client из сохранённых учётных данных (пустая строка: анонимная сессия).
type Dialer func(ctx context.Context, credential string) (Client, error)

// SessionStore: персистентное хранилище учётных данных сессии.
type SessionStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	Clear(ctx context.Context) error
}

// Сигналы адаптера, которые ядро различает.
var (
	ErrPasswordRequired = errors.New("two-factor password required")
	ErrInvalidPassword  = errors.New("invalid two-factor password")
)
