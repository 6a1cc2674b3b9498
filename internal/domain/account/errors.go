package account

import (
	"github.com/go-faster/errors"
)

// Доменные ошибки. Ошибки, обнаруженные до сетевых вызовов, не имеют побочных эффектов.
var (
	ErrNotAuthenticated   = errors.New("not authenticated with telegram")
	ErrPhoneMismatch      = errors.New("phone number mismatch")
	ErrNoPendingChallenge = errors.New("no pending verification")
	ErrInvalidCode        = errors.New("invalid code")
	ErrTargetNotFound     = errors.New("target account not found")
	ErrEmptyPhone         = errors.New("phone number is empty")
	ErrEmptyQuery         = errors.New("query is empty")
)

// TransportError: любая неклассифицированная ошибка адаптера.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// TargetNotFoundError уточняет ErrTargetNotFound именем, которое не удалось разрешить.
type TargetNotFoundError struct {
	Username string
	Err      error
}

func (e *TargetNotFoundError) Error() string {
	return "could not find @" + e.Username + ": " + e.Err.Error()
}

func (e *TargetNotFoundError) Unwrap() error { return e.Err }

// Is позволяет проверять errors.Is(err, ErrTargetNotFound).
func (e *TargetNotFoundError) Is(target error) bool { return target == ErrTargetNotFound }
