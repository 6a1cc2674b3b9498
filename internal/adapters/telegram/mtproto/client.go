// Package mtproto реализует адаптер MTProto-клиента шлюза поверх gotd.
// Клиент запускается в фоне (client.Run внутри floodwait.Waiter) и живёт, пока его
// не закроют; ядро (account.Manager) обращается к нему через узкий интерфейс
// account.Client: вход по коду и 2FA, статус, поиск бота по username, отправка
// сообщения, чтение истории и выход.
package mtproto

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/crypto"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rera-gateway/internal/domain/account"
	"rera-gateway/internal/infra/logger"
	"rera-gateway/internal/support/version"
)

// Options: параметры подключения к Telegram.
type Options struct {
	APIID       int
	APIHash     string
	TestDC      bool
	ThrottleRPS int
}

// Client: подключённый gotd-клиент, реализующий account.Client.
type Client struct {
	client  *telegram.Client
	api     *tg.Client
	peers   *peers.Manager
	session *memorySession

	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
	closeOnce sync.Once
}

var _ account.Client = (*Client)(nil)

// NewDialer возвращает account.Dialer, поднимающий клиента с заданными опциями.
func NewDialer(opts Options) account.Dialer {
	return func(ctx context.Context, credential string) (account.Client, error) {
		c, err := Dial(ctx, opts, credential)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Dial создаёт клиента из учётных данных (пустая строка: анонимная сессия), запускает
// его в фоне и ждёт установления соединения или отмены ctx. ctx ограничивает только
// ожидание подключения; дальше клиент живёт до Close.
func Dial(ctx context.Context, opts Options, credential string) (*Client, error) {
	data, err := decodeCredential(credential)
	if err != nil {
		// Битые учётные данные не должны блокировать новый вход.
		logger.Warn("Stored session is corrupted, starting anonymous session", zap.Error(err))
		data = nil
	}
	sess := &memorySession{data: data}

	rps := opts.ThrottleRPS
	if rps <= 0 {
		rps = 1
	}
	waiter := floodwait.NewWaiter()

	options := telegram.Options{
		SessionStorage: sess,
		NoUpdates:      true,
		Middlewares: []telegram.Middleware{
			waiter,
			ratelimit.New(rate.Limit(rps), rps*2), //nolint:mnd // burst = 2*rate
		},
		Device: telegram.DeviceConfig{
			DeviceModel:   "RERA Gateway",
			SystemVersion: "linux",
			AppVersion:    version.Version,
		},
	}
	// Для тестовых окружений используем DC тестового стенда Telegram.
	if opts.TestDC {
		options.DCList = dcs.Test()
	}

	client := telegram.NewClient(opts.APIID, opts.APIHash, options)
	runCtx, cancel := context.WithCancel(context.Background())

	c := &Client{
		client:  client,
		api:     client.API(),
		peers:   (peers.Options{}).Build(client.API()),
		session: sess,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	ready := make(chan struct{})
	go func() {
		defer close(c.done)
		c.runErr = waiter.Run(runCtx, func(ctx context.Context) error {
			return client.Run(ctx, func(ctx context.Context) error {
				close(ready)
				<-ctx.Done()
				return ctx.Err()
			})
		})
		if c.runErr != nil && !errors.Is(c.runErr, context.Canceled) {
			logger.Error("MTProto client stopped", zap.Error(c.runErr))
		}
	}()

	select {
	case <-ready:
		return c, nil
	case <-c.done:
		cancel()
		if c.runErr == nil {
			return nil, errors.New("client stopped before connect")
		}
		return nil, errors.Wrap(c.runErr, "connect")
	case <-ctx.Done():
		cancel()
		<-c.done
		return nil, errors.Wrap(ctx.Err(), "connect")
	}
}

// Alive сообщает, работает ли фоновый цикл клиента.
func (c *Client) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close останавливает фоновый цикл и дожидается его завершения. Идемпотентен.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

// Authorized сверяет статус авторизации с сервером.
func (c *Client) Authorized(ctx context.Context) (bool, error) {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, observe("auth.status", err)
	}
	return status.Authorized, nil
}

// Self возвращает текущего пользователя. Телефон приводится к виду +<digits>.
func (c *Client) Self(ctx context.Context) (account.Account, error) {
	self, err := c.client.Self(ctx)
	if err != nil {
		return account.Account{}, observe("self", err)
	}
	return account.Account{
		ID:       self.ID,
		Phone:    normalizePhone(self.Phone),
		Username: self.Username,
	}, nil
}

// SendCode запрашивает код подтверждения и возвращает phone_code_hash.
func (c *Client) SendCode(ctx context.Context, phone string) (string, error) {
	sent, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", observe("auth.sendCode", err)
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", errors.Errorf("unexpected sent code type: %T", sent)
	}
	return code.PhoneCodeHash, nil
}

// SignIn входит по коду. Ответы сервера переводятся в сигналы ядра.
func (c *Client) SignIn(ctx context.Context, phone, code, codeHash string) error {
	_, err := c.client.Auth().SignIn(ctx, phone, code, codeHash)
	return signInError(err)
}

// SignInPassword завершает вход паролем 2FA.
func (c *Client) SignInPassword(ctx context.Context, password string) error {
	_, err := c.client.Auth().Password(ctx, password)
	return passwordError(err)
}

// signInError переводит ошибку auth.signIn в сигналы ядра.
func signInError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		return account.ErrPasswordRequired
	case tgerr.Is(err, invalidCodeErrors...):
		return errors.Wrap(account.ErrInvalidCode, err.Error())
	default:
		return observe("auth.signIn", err)
	}
}

// passwordError переводит ошибку проверки пароля 2FA в сигналы ядра.
func passwordError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrPasswordInvalid):
		return account.ErrInvalidPassword
	default:
		return observe("auth.checkPassword", err)
	}
}

// ResolveUsername разрешает публичный username в собеседника.
func (c *Client) ResolveUsername(ctx context.Context, username string) (account.Peer, error) {
	p, err := c.peers.ResolveDomain(ctx, strings.TrimPrefix(username, "@"))
	if err != nil {
		return account.Peer{}, observe("contacts.resolveUsername", err)
	}
	return account.Peer{
		ID:       p.ID(),
		Username: username,
		Handle:   p.InputPeer(),
	}, nil
}

// SendMessage отправляет текст и возвращает id сообщения, если сервер его сообщил.
func (c *Client) SendMessage(ctx context.Context, peer account.Peer, text string) (int, error) {
	input, err := inputPeer(peer)
	if err != nil {
		return 0, err
	}
	randomID, err := crypto.RandInt64(rand.Reader)
	if err != nil {
		return 0, errors.Wrap(err, "random id")
	}

	updates, err := c.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     input,
		Message:  text,
		RandomID: randomID,
	})
	if err != nil {
		return 0, observe("messages.sendMessage", err)
	}
	return sentMessageID(updates, randomID), nil
}

// RecentMessages читает последние limit сообщений переписки, новые первыми.
func (c *Client) RecentMessages(ctx context.Context, peer account.Peer, limit int) ([]account.Message, error) {
	input, err := inputPeer(peer)
	if err != nil {
		return nil, err
	}

	res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  input,
		Limit: limit,
	})
	if err != nil {
		return nil, observe("messages.getHistory", err)
	}
	return historyMessages(res), nil
}

// LogOut завершает авторизацию на сервере.
func (c *Client) LogOut(ctx context.Context) error {
	if _, err := c.api.AuthLogOut(ctx); err != nil {
		return observe("auth.logOut", err)
	}
	return nil
}

// SessionString сериализует текущую сессию.
func (c *Client) SessionString(_ context.Context) (string, error) {
	credential := c.session.encode()
	if credential == "" {
		return "", errors.New("session is empty")
	}
	return credential, nil
}

func inputPeer(peer account.Peer) (tg.InputPeerClass, error) {
	input, ok := peer.Handle.(tg.InputPeerClass)
	if !ok || input == nil {
		return nil, errors.Errorf("peer %d has no input peer", peer.ID)
	}
	return input, nil
}

// sentMessageID достаёт id отправленного сообщения из ответа messages.sendMessage.
// Для личных чатов сервер обычно отвечает UpdateShortSentMessage, иначе ищем
// UpdateMessageID с нашим random_id.
func sentMessageID(updates tg.UpdatesClass, randomID int64) int {
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID
	case *tg.Updates:
		return findMessageID(u.Updates, randomID)
	case *tg.UpdatesCombined:
		return findMessageID(u.Updates, randomID)
	default:
		return 0
	}
}

func findMessageID(list []tg.UpdateClass, randomID int64) int {
	for _, upd := range list {
		if m, ok := upd.(*tg.UpdateMessageID); ok && m.RandomID == randomID {
			return m.ID
		}
	}
	return 0
}

// historyMessages приводит ответ messages.getHistory к списку сообщений ядра.
// Служебные и пустые сообщения пропускаются.
func historyMessages(res tg.MessagesMessagesClass) []account.Message {
	var list []tg.MessageClass
	switch m := res.(type) {
	case *tg.MessagesMessages:
		list = m.Messages
	case *tg.MessagesMessagesSlice:
		list = m.Messages
	case *tg.MessagesChannelMessages:
		list = m.Messages
	default:
		return nil
	}

	out := make([]account.Message, 0, len(list))
	for _, raw := range list {
		msg, ok := raw.(*tg.Message)
		if !ok {
			continue
		}
		out = append(out, account.Message{ID: msg.ID, Out: msg.Out, Text: msg.Message})
	}
	return out
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
