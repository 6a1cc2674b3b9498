package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rera-gateway/internal/infra/logger"
)

func TestInitFileTeesIntoRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	var console bytes.Buffer

	logger.Init("warn")
	logger.SetWriters(&console, nil)
	logger.InitFile(logger.FileOptions{Path: path, Level: "debug", MaxSizeMB: 1})
	t.Cleanup(func() {
		logger.InitFile(logger.FileOptions{})
		logger.SetWriters(nil, nil)
	})

	logger.Debug("lookup relayed")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "lookup relayed") {
		t.Fatalf("file log = %q, want debug entry", data)
	}
	// Консоль на уровне warn debug-записи не видит.
	if strings.Contains(console.String(), "lookup relayed") {
		t.Fatalf("console log = %q, debug entry must be filtered", console.String())
	}
}
