package mtproto

import (
	"context"
	"encoding/base64"
	"sync"

	tdsession "github.com/gotd/td/session"
)

// memorySession держит gotd-сессию в памяти. На диск она попадает только через
// account.SessionStore после успешного входа, поэтому наличие файла означает
// «был логин», а не просто «был handshake с DC».
type memorySession struct {
	mux  sync.Mutex
	data []byte
}

var _ tdsession.Storage = (*memorySession)(nil)

// LoadSession отдаёт копию данных или ErrNotFound для анонимной сессии.
func (m *memorySession) LoadSession(_ context.Context) ([]byte, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	if len(m.data) == 0 {
		return nil, tdsession.ErrNotFound
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// StoreSession вызывается gotd при смене ключа/DC и после авторизации.
func (m *memorySession) StoreSession(_ context.Context, data []byte) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	m.data = append(m.data[:0], data...)
	return nil
}

// encode сериализует сессию в строку учётных данных.
func (m *memorySession) encode() string {
	m.mux.Lock()
	defer m.mux.Unlock()

	if len(m.data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(m.data)
}

// decodeCredential восстанавливает сессию из строки учётных данных.
func decodeCredential(credential string) ([]byte, error) {
	if credential == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(credential)
}
