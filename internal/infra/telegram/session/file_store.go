package session

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"rera-gateway/internal/infra/storage"
)

// FileStore хранит учётные данные в обычном файле. Запись атомарна
// (storage.AtomicWriteFile), поэтому при падении процесса файл либо старый, либо новый.
// Потокобезопасен: операции защищены мьютексом.
type FileStore struct {
	Path string
	mux  sync.Mutex
}

var _ Store = (*FileStore)(nil)

// Load читает файл сессии. Отсутствующий файл: пустая строка без ошибки.
func (f *FileStore) Load(_ context.Context) (string, error) {
	if f == nil {
		return "", errors.New("nil session store is invalid")
	}
	f.mux.Lock()
	defer f.mux.Unlock()

	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read session")
	}
	return strings.TrimSpace(string(data)), nil
}

// Save атомарно перезаписывает файл сессии.
func (f *FileStore) Save(_ context.Context, credential string) error {
	if f == nil {
		return errors.New("nil session store is invalid")
	}
	f.mux.Lock()
	defer f.mux.Unlock()

	if err := storage.AtomicWriteFile(f.Path, []byte(credential)); err != nil {
		return errors.Wrap(err, "atomic write session")
	}
	return nil
}

// Clear удаляет файл сессии; повторный вызов безопасен.
func (f *FileStore) Clear(_ context.Context) error {
	if f == nil {
		return errors.New("nil session store is invalid")
	}
	f.mux.Lock()
	defer f.mux.Unlock()

	if err := storage.RemoveFile(f.Path); err != nil {
		return errors.Wrap(err, "remove session")
	}
	return nil
}

// Close ничего не держит открытым.
func (f *FileStore) Close() error { return nil }
