package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"rera-gateway/internal/infra/config"
	"rera-gateway/internal/infra/telegram/session"
)

func TestStoreContract(t *testing.T) {
	t.Parallel()

	backends := []string{config.SessionBackendFile, config.SessionBackendBolt}

	for _, backend := range backends {
		backend := backend
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store, err := session.Open(backend, filepath.Join(t.TempDir(), "data", "session"))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })

			// Пустое хранилище: пустая строка, без ошибки «не найдено».
			got, err := store.Load(ctx)
			if err != nil || got != "" {
				t.Fatalf("Load() on empty = %q, %v", got, err)
			}

			// Clear на пустом хранилище идемпотентен.
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear() on empty error = %v", err)
			}

			if err := store.Save(ctx, "cred-1"); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if err := store.Save(ctx, "cred-2"); err != nil {
				t.Fatalf("Save() overwrite error = %v", err)
			}
			if got, err := store.Load(ctx); err != nil || got != "cred-2" {
				t.Fatalf("Load() = %q, %v; want cred-2", got, err)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("second Clear() error = %v", err)
			}
			if got, err := store.Load(ctx); err != nil || got != "" {
				t.Fatalf("Load() after Clear = %q, %v", got, err)
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.txt")

	first := &session.FileStore{Path: path}
	if err := first.Save(ctx, "persisted"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := &session.FileStore{Path: path}
	if got, err := second.Load(ctx); err != nil || got != "persisted" {
		t.Fatalf("Load() = %q, %v", got, err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	if _, err := session.Open("redis", "x"); err == nil {
		t.Fatal("Open() error = nil, want error")
	}
	if _, err := session.Open(config.SessionBackendFile, " "); err == nil {
		t.Fatal("Open() with empty path error = nil, want error")
	}
}
