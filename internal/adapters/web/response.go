package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"go.uber.org/zap"

	"rera-gateway/internal/domain/account"
	"rera-gateway/internal/infra/logger"
)

// errorBody: тело ответа с ошибкой.
type errorBody struct {
	Detail string `json:"detail"`
}

// writeJSON сериализует v и пишет ответ с кодом status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		data = []byte(`{"detail":"Internal Server Error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeResponse(w, data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeServiceError переводит ошибку ядра в HTTP-статус и detail.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status, detail := s.classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	}
	writeError(w, status, detail)
}

func (s *Server) classify(err error) (int, string) {
	switch {
	case errors.Is(err, account.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Not authenticated with Telegram"
	case errors.Is(err, account.ErrTargetNotFound):
		return http.StatusNotFound, "Could not find @" + s.service.TargetBot()
	case errors.Is(err, account.ErrNoPendingChallenge):
		return http.StatusBadRequest, "No pending verification. Start auth first."
	case errors.Is(err, account.ErrPhoneMismatch):
		return http.StatusBadRequest, "Phone number mismatch. Start auth again."
	case errors.Is(err, account.ErrInvalidCode):
		return http.StatusBadRequest, "Invalid code"
	case errors.Is(err, account.ErrInvalidPassword):
		return http.StatusBadRequest, "Invalid 2FA password"
	case errors.Is(err, account.ErrEmptyPhone):
		return http.StatusBadRequest, "Phone number is required"
	case errors.Is(err, account.ErrEmptyQuery):
		return http.StatusBadRequest, "RERA number is required"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// writeResponse записывает ответ в ResponseWriter с автоматическим логированием ошибок.
// Автоматически определяет место вызова для отладки.
func writeResponse(w http.ResponseWriter, data []byte) {
	var writeErr error

	if _, writeErr = w.Write(data); writeErr == nil {
		return
	}

	callerLocation := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		if wd, getwdErr := os.Getwd(); getwdErr == nil {
			if rel, relErr := filepath.Rel(wd, file); relErr == nil {
				file = rel
			}
		}
		callerLocation = file + ":" + strconv.Itoa(line)
	}

	logger.Error("failed to write response",
		zap.String("caller", callerLocation),
		zap.Error(writeErr))
}
