package cli

import (
	"os"

	"golang.org/x/term"

	"rera-gateway/internal/infra/pr"
)

// TerminalPrompter читает ввод через общий readline, пароль: через term без эха.
type TerminalPrompter struct{}

// ReadLine выводит приглашение и читает строку.
func (TerminalPrompter) ReadLine(prompt string) (string, error) {
	return pr.ReadLine(prompt)
}

// ReadPassword считывает пароль двухфакторной аутентификации без отображения символов.
func (TerminalPrompter) ReadPassword(prompt string) (string, error) {
	pr.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	// Возвращаем курсор на новую строку после скрытого ввода.
	pr.Println()
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}

// Println печатает сообщение для пользователя.
func (TerminalPrompter) Println(a ...any) {
	pr.Println(a...)
}

// IsTerminal сообщает, подключён ли stdin к терминалу.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
