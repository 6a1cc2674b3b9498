package account

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"rera-gateway/internal/infra/logger"
)

// NoResponseYet возвращается вместо ответа, если бот не ответил за отведённое время.
const NoResponseYet = "No response received from bot yet. Please try again in a moment."

// LookupResult: результат пересылки.
type LookupResult struct {
	Query    string
	Response string
	// Replied: false, если в Response стоит NoResponseYet.
	Replied bool
}

// Lookup отправляет query боту и возвращает его ответ.
//
// Ответ не коррелирует с запросом по id: после паузы ReplyWait берётся первое входящее
// сообщение из последних HistoryLimit. Если у бота остались непрочитанные ответы на
// прошлые запросы, вернуться может устаревший ответ. StrictReply отсекает сообщения
// не новее отправленного запроса, но не защищает от запоздавшего ответа на прежний запрос.
func (m *Manager) Lookup(ctx context.Context, query string) (LookupResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return LookupResult{}, ErrEmptyQuery
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	client, err := m.handleLocked(ctx)
	if err != nil {
		return LookupResult{}, err
	}

	authorized, err := m.authorizedLocked(ctx, client)
	if err != nil {
		return LookupResult{}, transport("auth status", err)
	}
	if !authorized {
		return LookupResult{}, ErrNotAuthenticated
	}

	logger.Info("Looking up", zap.String("query", query))

	peer, err := m.resolveTargetLocked(ctx, client)
	if err != nil {
		return LookupResult{}, err
	}

	sentID, err := m.sendLocked(ctx, client, peer, query)
	if err != nil {
		return LookupResult{}, transport("send message", err)
	}
	logger.Debug("Query sent to bot", zap.String("bot", m.opts.TargetBot), zap.Int("msg_id", sentID))

	if err := m.opts.Sleep(ctx, m.opts.ReplyWait); err != nil {
		return LookupResult{}, errors.Wrap(err, "wait for reply")
	}

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	messages, err := client.RecentMessages(callCtx, peer, m.opts.HistoryLimit)
	if err != nil {
		return LookupResult{}, transport("fetch history", err)
	}

	if reply, ok := m.pickReply(messages, sentID); ok {
		logger.Info("Got response from bot", zap.String("query", query))
		return LookupResult{Query: query, Response: reply, Replied: true}, nil
	}

	logger.Info("No response from bot yet", zap.String("query", query))
	return LookupResult{Query: query, Response: NoResponseYet}, nil
}

func (m *Manager) authorizedLocked(ctx context.Context, client Client) (bool, error) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	return client.Authorized(callCtx)
}

func (m *Manager) resolveTargetLocked(ctx context.Context, client Client) (Peer, error) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	peer, err := client.ResolveUsername(callCtx, m.opts.TargetBot)
	if err != nil {
		logger.Error("Could not find bot", zap.String("bot", m.opts.TargetBot), zap.Error(err))
		return Peer{}, &TargetNotFoundError{Username: m.opts.TargetBot, Err: err}
	}
	return peer, nil
}

func (m *Manager) sendLocked(ctx context.Context, client Client, peer Peer, text string) (int, error) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	return client.SendMessage(callCtx, peer, text)
}

// pickReply берёт первое (самое новое) входящее сообщение. Пустой текст: ответа нет.
func (m *Manager) pickReply(messages []Message, sentID int) (string, bool) {
	for _, msg := range messages {
		if msg.Out {
			continue
		}
		if m.opts.StrictReply && sentID > 0 && msg.ID <= sentID {
			continue
		}
		if msg.Text == "" {
			return "", false
		}
		return msg.Text, true
	}
	return "", false
}
