// Package session хранит учётные данные MTProto-сессии шлюза между перезапусками.
// Учётные данные непрозрачны: это сериализованное состояние gotd-сессии (auth key, DC),
// которое адаптер отдаёт строкой после успешного логина.
//
// Контракт хранилища:
//   - Load никогда не возвращает ошибку «не найдено»: отсутствие означает пустую строку;
//   - Save перезаписывает прежнее значение и возвращается только после fsync;
//   - Clear идемпотентен.
//
// Наличие значения не гарантирует его валидность: Telegram может отклонить сессию,
// и тогда шлюз снова считается неавторизованным.
package session

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"rera-gateway/internal/infra/config"
)

// Store: персистентное хранилище одной строки учётных данных.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	Clear(ctx context.Context) error
	Close() error
}

// Open создаёт хранилище выбранного backend'а поверх пути path.
func Open(backend, path string) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("session: path is empty")
	}
	switch backend {
	case config.SessionBackendFile, "":
		return &FileStore{Path: path}, nil
	case config.SessionBackendBolt:
		return OpenBolt(path)
	default:
		return nil, errors.Errorf("session: unknown backend %q", backend)
	}
}
