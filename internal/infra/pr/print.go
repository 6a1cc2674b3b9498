// Package pr содержит тонкую обёртку над readline для интерактивного входа в терминале.
// После Init() вывод логгера и печать идут через буферы readline, чтобы приглашение
// ввода не перемешивалось с логами. До Init() печать идёт в os.Stdout/os.Stderr.
// Мьютекс защищает только смену целевых writer'ов.
package pr

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kr/pretty"
)

var (
	// rl: активный инстанс readline. nil до Init() и после Close().
	rl *readline.Instance
	// out/errOut: текущие потоки вывода.
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	mu     sync.Mutex

	// cancelableIn: stdin, закрытие которого прерывает ожидание ввода (io.EOF в readline).
	cancelableIn io.Closer
)

// Init настраивает readline и перенаправляет потоки вывода на его stdout/stderr.
func Init() error {
	cs := readline.NewCancelableStdin(os.Stdin)
	newRl, err := readline.NewEx(&readline.Config{Stdin: cs})
	if err != nil {
		_ = cs.Close()
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	rl = newRl
	cancelableIn = cs
	out = rl.Stdout()
	errOut = rl.Stderr()
	return nil
}

// Close закрывает readline и возвращает вывод на os.Stdout/os.Stderr. Идемпотентна.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if cancelableIn != nil {
		_ = cancelableIn.Close()
		cancelableIn = nil
	}
	if rl != nil {
		_ = rl.Close()
		rl = nil
	}
	out = os.Stdout
	errOut = os.Stderr
}

// InterruptReadline прерывает текущее ожидание ввода.
func InterruptReadline() {
	mu.Lock()
	defer mu.Unlock()
	if cancelableIn != nil {
		_ = cancelableIn.Close()
	}
}

// ReadLine выводит приглашение, читает строку и обрезает пробелы по краям.
func ReadLine(prompt string) (string, error) {
	mu.Lock()
	inst := rl
	mu.Unlock()
	if inst == nil {
		return "", fmt.Errorf("readline is not initialized")
	}

	inst.SetPrompt(prompt)
	line, err := inst.Readline()
	return strings.TrimSpace(line), err
}

// Stdout возвращает текущий writer стандартного вывода.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// Stderr возвращает текущий writer ошибок.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

// Print печатает значения в Stdout без перевода строки.
func Print(a ...any) {
	fmt.Fprint(Stdout(), a...)
}

// Println печатает значения в Stdout и добавляет перевод строки.
func Println(a ...any) {
	fmt.Fprintln(Stdout(), a...)
}

// Printf форматирует строку и печатает её в Stdout.
func Printf(format string, a ...any) {
	fmt.Fprintf(Stdout(), format, a...)
}

// Pf возвращает pretty-строку значения (для debug-дампов конфигурации).
func Pf(v any) string {
	return fmt.Sprintf("%# v", pretty.Formatter(v))
}
