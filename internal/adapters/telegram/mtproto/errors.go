package mtproto

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/gotd/td/pool"
	"github.com/gotd/td/rpc"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"

	"rera-gateway/internal/infra/logger"
)

// Коды RPC-ошибок, которые означают неверный код подтверждения.
var invalidCodeErrors = []string{"PHONE_CODE_INVALID", "PHONE_CODE_EMPTY"}

// isNetworkError определяет, сигнализирует ли ошибка о сетевой проблеме/разрыве.
// Считаем сетевыми: закрытия соединения/движка (pool.ErrConnDead, rpc.ErrEngineClosed),
// исчерпание ретраев rpc.RetryLimitReachedErr, таймауты/дедлайны, EOF и net.Error.
// Контекстные отмены не считаем сетевыми.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, pool.ErrConnDead) || errors.Is(err, rpc.ErrEngineClosed) {
		return true
	}
	var retryErr *rpc.RetryLimitReachedErr
	if errors.As(err, &retryErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// observe логирует ошибку RPC-вызова op и возвращает её без изменений.
// Сетевые сбои пишутся в warn, ответы сервера (tgerr): в debug с кодом.
func observe(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNetworkError(err) {
		logger.Warn("MTProto connection problem", zap.String("op", op), zap.Error(err))
		return err
	}
	if rpcErr, ok := tgerr.As(err); ok {
		logger.Debug("MTProto RPC error",
			zap.String("op", op),
			zap.Int("code", rpcErr.Code),
			zap.String("type", rpcErr.Type),
		)
	}
	return err
}
