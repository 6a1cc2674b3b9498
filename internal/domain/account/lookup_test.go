package account_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rera-gateway/internal/domain/account"
)

func TestLookupReturnsBotReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var e *env
	e = newEnv(t, func(o *account.Options) {
		// Бот «отвечает» во время паузы.
		o.Sleep = func(context.Context, time.Duration) error {
			e.client.reply("Valid RERA")
			return nil
		}
	})
	e.login(t, "+15550001")

	res, err := e.mgr.Lookup(ctx, "  12345 ")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	want := account.LookupResult{Query: "12345", Response: "Valid RERA", Replied: true}
	if res != want {
		t.Fatalf("Lookup() = %+v, want %+v", res, want)
	}
	if e.client.history[len(e.client.history)-1].Text != "12345" {
		t.Fatalf("sent text = %q, want trimmed query", e.client.history[len(e.client.history)-1].Text)
	}
}

func TestLookupNoReplyYet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, nil)
	e.login(t, "+15550001")

	res, err := e.mgr.Lookup(ctx, "12345")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if res.Replied || res.Response != account.NoResponseYet || res.Query != "12345" {
		t.Fatalf("Lookup() = %+v, want sentinel", res)
	}
	if len(e.waits) != 1 || e.waits[0] != 3*time.Second {
		t.Fatalf("waits = %v, want single 3s grace period", e.waits)
	}
}

func TestLookupNotAuthenticatedSendsNothing(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)

	if _, err := e.mgr.Lookup(context.Background(), "12345"); !errors.Is(err, account.ErrNotAuthenticated) {
		t.Fatalf("Lookup() error = %v, want ErrNotAuthenticated", err)
	}
	if _, sends := e.client.counters(); sends != 0 {
		t.Fatalf("SendMessage calls = %d, want 0", sends)
	}
}

func TestLookupTargetNotFound(t *testing.T) {
	t.Parallel()

	e := newEnv(t, func(o *account.Options) { o.TargetBot = "MissingBot" })
	e.login(t, "+15550001")

	_, err := e.mgr.Lookup(context.Background(), "12345")
	if !errors.Is(err, account.ErrTargetNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrTargetNotFound", err)
	}
	var tnf *account.TargetNotFoundError
	if !errors.As(err, &tnf) || tnf.Username != "MissingBot" {
		t.Fatalf("Lookup() error = %#v", err)
	}
	if _, sends := e.client.counters(); sends != 0 {
		t.Fatalf("SendMessage calls = %d, want 0", sends)
	}
}

func TestLookupRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	if _, err := e.mgr.Lookup(context.Background(), " \t"); !errors.Is(err, account.ErrEmptyQuery) {
		t.Fatalf("Lookup() error = %v, want ErrEmptyQuery", err)
	}
}

func TestLookupStaleReply(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		strict bool
		want   string
	}{
		// Без строгого режима устаревший ответ возвращается: известное ограничение.
		{name: "heuristic", strict: false, want: "Stale answer"},
		{name: "strict", strict: true, want: account.NoResponseYet},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t, func(o *account.Options) { o.StrictReply = tc.strict })
			e.login(t, "+15550001")
			e.client.reply("Stale answer")

			res, err := e.mgr.Lookup(context.Background(), "12345")
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if res.Response != tc.want {
				t.Fatalf("Response = %q, want %q", res.Response, tc.want)
			}
		})
	}
}

func TestLookupCancelledDuringWait(t *testing.T) {
	t.Parallel()

	e := newEnv(t, func(o *account.Options) {
		o.Sleep = nil
		o.ReplyWait = time.Hour
	})
	e.login(t, "+15550001")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := e.mgr.Lookup(ctx, "12345"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Lookup() error = %v, want deadline exceeded", err)
	}
}

func TestLookupsAreSerialized(t *testing.T) {
	t.Parallel()

	var active, maxActive int32
	e := newEnv(t, func(o *account.Options) {
		o.Sleep = func(context.Context, time.Duration) error {
			n := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if n <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		}
	})
	e.login(t, "+15550001")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.mgr.Lookup(context.Background(), "12345"); err != nil {
				t.Errorf("Lookup() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Fatalf("max concurrent waits = %d, want 1", got)
	}
}

func TestLookupDefaultReplyWait(t *testing.T) {
	t.Parallel()

	e := newEnv(t, func(o *account.Options) { o.ReplyWait = 0 })
	e.login(t, "+15550001")

	if _, err := e.mgr.Lookup(context.Background(), "12345"); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(e.waits) != 1 || e.waits[0] != 3*time.Second {
		t.Fatalf("waits = %v, want single 3s grace wait", e.waits)
	}
}
