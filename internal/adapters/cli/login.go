// Package cli проводит интерактивный вход в аккаунт Telegram из терминала (режим -login).
// Сценарий повторяет HTTP-поток /auth/start → /auth/verify: телефон, код, при
// необходимости пароль 2FA. Ввод абстрагирован интерфейсом Prompter, чтобы сценарий
// можно было прогнать без терминала.
package cli

import (
	"context"
	"errors"
	"fmt"

	"rera-gateway/internal/domain/account"
	"rera-gateway/internal/infra/logger"
)

// maxAttempts: сколько раз переспрашиваем код или пароль.
const maxAttempts = 3

// Authenticator: часть ядра, нужная для входа.
type Authenticator interface {
	RequestCode(ctx context.Context, phone string) (account.CodeRequest, error)
	VerifyCode(ctx context.Context, phone, code, password string) (account.Verification, error)
}

// Prompter читает ответы пользователя и печатает сообщения.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	// ReadPassword читает ввод без эха.
	ReadPassword(prompt string) (string, error)
	Println(a ...any)
}

// ErrTooManyAttempts: пользователь исчерпал попытки ввода кода или пароля.
var ErrTooManyAttempts = errors.New("too many attempts")

// Login проводит интерактивный вход. Уже авторизованная сессия: не ошибка.
func Login(ctx context.Context, authn Authenticator, p Prompter) error {
	phone, err := readNonEmpty(p, "Phone number (international format): ")
	if err != nil {
		return err
	}

	req, err := authn.RequestCode(ctx, phone)
	if err != nil {
		return fmt.Errorf("request code: %w", err)
	}
	p.Println(req.Message)
	if !req.CodeSent {
		return nil
	}

	var (
		code string
		res  account.Verification
	)
	for attempt := 1; ; attempt++ {
		code, err = readNonEmpty(p, "Enter the code from Telegram: ")
		if err != nil {
			return err
		}
		res, err = authn.VerifyCode(ctx, phone, code, "")
		if err == nil {
			break
		}
		if !errors.Is(err, account.ErrInvalidCode) {
			return fmt.Errorf("verify code: %w", err)
		}
		if attempt >= maxAttempts {
			return ErrTooManyAttempts
		}
		p.Println("Invalid code, try again.")
	}

	for attempt := 1; res.RequiresPassword; attempt++ {
		p.Println(res.Message)
		password, pErr := p.ReadPassword("Enter 2FA password: ")
		if pErr != nil {
			return pErr
		}
		res, err = authn.VerifyCode(ctx, phone, code, password)
		if err == nil {
			continue
		}
		if !errors.Is(err, account.ErrInvalidPassword) {
			return fmt.Errorf("verify password: %w", err)
		}
		if attempt >= maxAttempts {
			return ErrTooManyAttempts
		}
		p.Println("Invalid password, try again.")
		res = account.Verification{RequiresPassword: true, Message: account.MsgPasswordRequired}
	}

	logger.Info("Interactive login completed")
	p.Println(res.Message)
	return nil
}

func readNonEmpty(p Prompter, prompt string) (string, error) {
	for {
		line, err := p.ReadLine(prompt)
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}
