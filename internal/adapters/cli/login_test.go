package cli

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rera-gateway/internal/domain/account"
)

type scriptedPrompter struct {
	lines     []string
	passwords []string
	printed   []string
}

func (s *scriptedPrompter) ReadLine(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedPrompter) ReadPassword(string) (string, error) {
	if len(s.passwords) == 0 {
		return "", io.EOF
	}
	pw := s.passwords[0]
	s.passwords = s.passwords[1:]
	return pw, nil
}

func (s *scriptedPrompter) Println(a ...any) {
	if len(a) > 0 {
		if msg, ok := a[0].(string); ok {
			s.printed = append(s.printed, msg)
		}
	}
}

type fakeAuth struct {
	alreadyAuthorized bool
	validCode         string
	password          string
	phones            []string
	verifies          int
}

func (f *fakeAuth) RequestCode(_ context.Context, phone string) (account.CodeRequest, error) {
	f.phones = append(f.phones, phone)
	if f.alreadyAuthorized {
		return account.CodeRequest{Message: account.MsgAlreadyAuthenticated}, nil
	}
	return account.CodeRequest{CodeSent: true, Message: account.MsgCodeSent}, nil
}

func (f *fakeAuth) VerifyCode(_ context.Context, _, code, password string) (account.Verification, error) {
	f.verifies++
	if code != f.validCode {
		return account.Verification{}, account.ErrInvalidCode
	}
	if f.password != "" {
		switch password {
		case "":
			return account.Verification{RequiresPassword: true, Message: account.MsgPasswordRequired}, nil
		case f.password:
		default:
			return account.Verification{}, account.ErrInvalidPassword
		}
	}
	return account.Verification{Authenticated: true, Message: account.MsgAuthenticated}, nil
}

func TestLoginWithCode(t *testing.T) {
	authn := &fakeAuth{validCode: "12345"}
	p := &scriptedPrompter{lines: []string{"", "+971500000000", "11111", "12345"}}

	require.NoError(t, Login(context.Background(), authn, p))
	assert.Equal(t, []string{"+971500000000"}, authn.phones)
	assert.Equal(t, 2, authn.verifies)
	assert.Contains(t, p.printed, "Invalid code, try again.")
	assert.Equal(t, account.MsgAuthenticated, p.printed[len(p.printed)-1])
}

func TestLoginAlreadyAuthorized(t *testing.T) {
	authn := &fakeAuth{alreadyAuthorized: true}
	p := &scriptedPrompter{lines: []string{"+1"}}

	require.NoError(t, Login(context.Background(), authn, p))
	assert.Zero(t, authn.verifies)
	assert.Equal(t, []string{account.MsgAlreadyAuthenticated}, p.printed)
}

func TestLoginWithPassword(t *testing.T) {
	authn := &fakeAuth{validCode: "12345", password: "hunter2"}
	p := &scriptedPrompter{
		lines:     []string{"+1", "12345"},
		passwords: []string{"wrong", "hunter2"},
	}

	require.NoError(t, Login(context.Background(), authn, p))
	assert.Equal(t, 3, authn.verifies)
	assert.Contains(t, p.printed, "Invalid password, try again.")
	assert.Equal(t, account.MsgAuthenticated, p.printed[len(p.printed)-1])
}

func TestLoginTooManyInvalidCodes(t *testing.T) {
	authn := &fakeAuth{validCode: "12345"}
	p := &scriptedPrompter{lines: []string{"+1", "1", "2", "3", "12345"}}

	err := Login(context.Background(), authn, p)
	require.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, maxAttempts, authn.verifies)
}

func TestLoginInputClosed(t *testing.T) {
	err := Login(context.Background(), &fakeAuth{}, &scriptedPrompter{})
	require.True(t, errors.Is(err, io.EOF))
}
