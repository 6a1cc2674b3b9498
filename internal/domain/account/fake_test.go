package account_test

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"rera-gateway/internal/domain/account"
)

// fakeClient имитирует MTProto-клиент и считает вызовы.
type fakeClient struct {
	mu sync.Mutex

	authorized bool
	phone      string
	codeHash   string
	validCode  string
	password   string // непустой: у аккаунта включена 2FA
	targets    map[string]int64
	history    []account.Message
	nextMsgID  int

	authErr    error
	resolveErr error

	sendCodeCalls int
	signInCalls   int
	passwordCalls int
	sendCalls     int
	logOutCalls   int
	closeCalls    int
	dead          bool
	lastCodeHash  string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		codeHash:  "tok-1",
		validCode: "123456",
		targets:   map[string]int64{"AtlasDubaiBot": 777},
		nextMsgID: 100,
	}
}

func (f *fakeClient) Authorized(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return false, f.authErr
	}
	return f.authorized, nil
}

func (f *fakeClient) Self(context.Context) (account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return account.Account{ID: 1, Phone: f.phone}, nil
}

func (f *fakeClient) SendCode(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCodeCalls++
	return f.codeHash, nil
}

func (f *fakeClient) SignIn(_ context.Context, phone, code, codeHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	f.lastCodeHash = codeHash
	if code != f.validCode {
		return errors.Wrap(account.ErrInvalidCode, "PHONE_CODE_INVALID")
	}
	f.phone = phone
	if f.password != "" {
		return account.ErrPasswordRequired
	}
	f.authorized = true
	return nil
}

func (f *fakeClient) SignInPassword(_ context.Context, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwordCalls++
	if password != f.password {
		return account.ErrInvalidPassword
	}
	f.authorized = true
	return nil
}

func (f *fakeClient) ResolveUsername(_ context.Context, username string) (account.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return account.Peer{}, f.resolveErr
	}
	id, ok := f.targets[username]
	if !ok {
		return account.Peer{}, errors.New("USERNAME_NOT_OCCUPIED")
	}
	return account.Peer{ID: id, Username: username}, nil
}

func (f *fakeClient) SendMessage(_ context.Context, _ account.Peer, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	f.nextMsgID++
	f.history = append([]account.Message{{ID: f.nextMsgID, Out: true, Text: text}}, f.history...)
	return f.nextMsgID, nil
}

func (f *fakeClient) RecentMessages(_ context.Context, _ account.Peer, limit int) ([]account.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.history) {
		limit = len(f.history)
	}
	out := make([]account.Message, limit)
	copy(out, f.history[:limit])
	return out, nil
}

func (f *fakeClient) LogOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logOutCalls++
	f.authorized = false
	return nil
}

func (f *fakeClient) SessionString(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return "session:" + f.phone, nil
}

func (f *fakeClient) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

// reply добавляет входящее сообщение от бота (как будто оно пришло после запроса).
func (f *fakeClient) reply(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	f.history = append([]account.Message{{ID: f.nextMsgID, Text: text}}, f.history...)
}

func (f *fakeClient) counters() (sendCode, sends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCodeCalls, f.sendCalls
}

// memoryStore: SessionStore в памяти.
type memoryStore struct {
	mu         sync.Mutex
	credential string
	saves      int
	clears     int
}

func (s *memoryStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential, nil
}

func (s *memoryStore) Save(_ context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	s.saves++
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.clears++
	return nil
}

// env собирает Manager поверх фейков.
type env struct {
	mgr    *account.Manager
	client *fakeClient
	store  *memoryStore
	dials  []string
	waits  []time.Duration
}

func newEnv(tb interface{ Fatalf(string, ...any) }, mutate func(*account.Options)) *env {
	e := &env{client: newFakeClient(), store: &memoryStore{}}
	opts := account.Options{
		Dial: func(_ context.Context, credential string) (account.Client, error) {
			e.dials = append(e.dials, credential)
			return e.client, nil
		},
		Store:     e.store,
		TargetBot: "@AtlasDubaiBot",
		ReplyWait: 3 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			e.waits = append(e.waits, d)
			return nil
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	mgr, err := account.NewManager(opts)
	if err != nil {
		tb.Fatalf("NewManager() error = %v", err)
	}
	e.mgr = mgr
	return e
}

// login проводит полный вход для phone.
func (e *env) login(tb interface{ Fatalf(string, ...any) }, phone string) {
	ctx := context.Background()
	if _, err := e.mgr.RequestCode(ctx, phone); err != nil {
		tb.Fatalf("RequestCode() error = %v", err)
	}
	if _, err := e.mgr.VerifyCode(ctx, phone, e.client.validCode, e.client.password); err != nil {
		tb.Fatalf("VerifyCode() error = %v", err)
	}
}
