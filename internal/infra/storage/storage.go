// Package storage содержит утилиты безопасной работы с локальным хранилищем.
// В этом файле реализованы:
//   - EnsureDir: гарантирует наличие директории для целевого пути;
//   - AtomicWriteFile: атомарная запись файла с синхронизацией данных и метаданных;
//   - RemoveFile: идемпотентное удаление файла.
//
// Используется для хранения учётных данных MTProto-сессии, где недопустимы
// частично записанные файлы: после рестарта процесса файл является единственным
// источником правды о том, залогинен ли шлюз.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"rera-gateway/internal/infra/logger"
)

// DefaultFilePerm: права, выставляемые на итоговый файл при атомарной записи.
// Значение 0o600 ограничивает доступ только владельцу процесса.
const DefaultFilePerm os.FileMode = 0o600

// EnsureDir гарантирует наличие каталога для указанного файла.
// Если путь не содержит директорию ("." или пустая строка), ничего не делает.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// AtomicWriteFile атомарно записывает байты в файл path.
//
// Алгоритм: temp в той же директории → write → fsync(temp) → chmod(DefaultFilePerm)
// → close → rename → fsync(dir). Либо старый файл остаётся цел, либо новый записан
// полностью. os.Rename атомарен только в пределах одного файлового тома.
func AtomicWriteFile(path string, data []byte) error {
	clean := filepath.Clean(path)
	if err := EnsureDir(clean); err != nil {
		return err
	}
	dir := filepath.Dir(clean)

	tmp, err := os.CreateTemp(dir, "atomic-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Chmod(DefaultFilePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, clean); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	syncDir(dir)
	return nil
}

// RemoveFile удаляет файл path. Отсутствие файла ошибкой не считается.
func RemoveFile(path string) error {
	clean := filepath.Clean(path)
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", clean, err)
	}
	syncDir(filepath.Dir(clean))
	return nil
}

// syncDir делает fsync каталога по принципу best-effort: часть ОС/ФС это не поддерживает.
func syncDir(dir string) {
	dirFile, err := os.Open(dir)
	if err != nil {
		return
	}
	if errSync := dirFile.Sync(); errSync != nil {
		logger.Debugf("storage: dir sync error: %v", errSync)
	}
	_ = dirFile.Close()
}
