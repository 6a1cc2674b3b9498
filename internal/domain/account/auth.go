package account

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"rera-gateway/internal/infra/logger"
)

// Тексты ответов, которые видит клиент HTTP.
const (
	MsgAlreadyAuthenticated = "Already authenticated"
	MsgCodeSent             = "Code sent to Telegram"
	MsgPasswordRequired     = "2FA password required"
	MsgAuthenticated        = "Successfully authenticated"
	MsgLoggedOut            = "Logged out"
)

// CodeRequest: результат RequestCode.
type CodeRequest struct {
	CodeSent bool
	Message  string
}

// Verification: результат VerifyCode. RequiresPassword: ветка 2FA, а не ошибка:
// незавершённая авторизация сохраняется до повторной отправки с паролем.
type Verification struct {
	Authenticated    bool
	RequiresPassword bool
	Message          string
}

// Status: состояние авторизации для отчёта.
type Status struct {
	Authenticated bool
	Phone         string
}

// RequestCode запрашивает код подтверждения для phone. Если сессия уже авторизована
// (по данным сервера), код не отправляется. Новый запрос заменяет прежнюю незавершённую авторизацию.
func (m *Manager) RequestCode(ctx context.Context, phone string) (CodeRequest, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return CodeRequest{}, ErrEmptyPhone
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	client, err := m.handleLocked(ctx)
	if err != nil {
		return CodeRequest{}, err
	}

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	authorized, err := client.Authorized(callCtx)
	if err != nil {
		return CodeRequest{}, transport("auth status", err)
	}
	if authorized {
		logger.Info("RequestCode: already authorized, code not sent")
		return CodeRequest{CodeSent: false, Message: MsgAlreadyAuthenticated}, nil
	}

	codeHash, err := client.SendCode(callCtx, phone)
	if err != nil {
		return CodeRequest{}, transport("send code", err)
	}

	m.pending = &pendingAuth{phone: phone, codeHash: codeHash}
	logger.Info("Code sent", zap.String("phone", maskPhone(phone)))
	return CodeRequest{CodeSent: true, Message: MsgCodeSent}, nil
}

// VerifyCode завершает вход кодом (и паролем 2FA, если он нужен).
// Неверный код или пароль не сбрасывают незавершённую авторизацию: можно повторить.
// При успехе сессия сохраняется в хранилище, незавершённая авторизация очищается.
func (m *Manager) VerifyCode(ctx context.Context, phone, code, password string) (Verification, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.pending
	if p == nil {
		return Verification{}, ErrNoPendingChallenge
	}
	if p.phone != phone {
		return Verification{}, ErrPhoneMismatch
	}

	client, err := m.handleLocked(ctx)
	if err != nil {
		return Verification{}, err
	}

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	if !p.needPassword {
		signErr := client.SignIn(callCtx, phone, code, p.codeHash)
		switch {
		case signErr == nil:
			return m.completeLocked(ctx)
		case errors.Is(signErr, ErrPasswordRequired):
			p.needPassword = true
		case errors.Is(signErr, ErrInvalidCode):
			logger.Info("VerifyCode: invalid code", zap.String("phone", maskPhone(phone)))
			return Verification{}, ErrInvalidCode
		default:
			return Verification{}, transport("sign in", signErr)
		}
	}

	if password == "" {
		logger.Info("VerifyCode: 2FA password required", zap.String("phone", maskPhone(phone)))
		return Verification{RequiresPassword: true, Message: MsgPasswordRequired}, nil
	}

	if err := client.SignInPassword(callCtx, password); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return Verification{}, ErrInvalidPassword
		}
		return Verification{}, transport("sign in with password", err)
	}
	return m.completeLocked(ctx)
}

// completeLocked сохраняет сессию и закрывает незавершённую авторизацию.
func (m *Manager) completeLocked(ctx context.Context) (Verification, error) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	credential, err := m.client.SessionString(callCtx)
	if err != nil {
		return Verification{}, transport("export session", err)
	}
	if err := m.opts.Store.Save(ctx, credential); err != nil {
		return Verification{}, errors.Wrap(err, "persist session")
	}

	m.pending = nil
	logger.Info("Successfully authenticated")
	return Verification{Authenticated: true, Message: MsgAuthenticated}, nil
}

// Status спрашивает у сервера, авторизована ли сессия, и телефон аккаунта.
// Никогда не возвращает ошибку: при любом сбое транспорта сессия считается неавторизованной.
func (m *Manager) Status(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, err := m.handleLocked(ctx)
	if err != nil {
		logger.Warn("Status check error", zap.Error(err))
		return Status{}
	}

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	authorized, err := client.Authorized(callCtx)
	if err != nil {
		logger.Warn("Status check error", zap.Error(err))
		return Status{}
	}
	if !authorized {
		return Status{}
	}

	self, err := client.Self(callCtx)
	if err != nil {
		logger.Warn("Status check error", zap.Error(err))
		return Status{}
	}
	return Status{Authenticated: true, Phone: self.Phone}
}

// Logout разлогинивает аккаунт на сервере, уничтожает клиент (следующее обращение
// создаст новый) и очищает хранилище. Повторный вызов после выхода ошибкой не является.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil

	if m.client == nil {
		// Клиент ещё не поднимался, но на диске может лежать сессия: её тоже надо закрыть на сервере.
		credential, err := m.opts.Store.Load(ctx)
		if err == nil && credential != "" {
			if _, dialErr := m.handleLocked(ctx); dialErr != nil {
				logger.Warn("Logout: cannot restore session for remote log out", zap.Error(dialErr))
			}
		}
	}

	if m.client != nil {
		callCtx, cancel := m.callCtx(ctx)
		authorized, err := m.client.Authorized(callCtx)
		if err != nil {
			// Статус неизвестен: сессия на сервере может быть жива, учётные данные не трогаем.
			cancel()
			return transport("auth status", err)
		}
		if authorized {
			if err := m.client.LogOut(callCtx); err != nil {
				cancel()
				return transport("log out", err)
			}
		}
		cancel()
		if err := m.dropClientLocked(); err != nil {
			logger.Warn("Logout: close client", zap.Error(err))
		}
	}

	if err := m.opts.Store.Clear(ctx); err != nil {
		return errors.Wrap(err, "clear session")
	}
	logger.Info("Logged out")
	return nil
}
