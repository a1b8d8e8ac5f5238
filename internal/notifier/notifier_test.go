package notifier

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"lightning-gateway/internal/domain/entities"
)

func newTestNotifier() *Notifier {
	return New("cb-secret", zap.NewNop())
}

func TestNotifier_NotifyTerminal_SkipsWithoutCallbackURL(t *testing.T) {
	var called int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier()
	req := &entities.PaymentRequest{Status: entities.StatusPaid, Amount: decimal.NewFromInt(1000)}
	n.NotifyTerminal(req, "settled")
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&called))
}

func TestNotifier_NotifyTerminal_SkipsNonTerminal(t *testing.T) {
	n := newTestNotifier()
	req := &entities.PaymentRequest{Status: entities.StatusPending, CallbackURL: null.StringFrom("http://example.invalid/cb")}
	n.NotifyTerminal(req, "") // must not panic or spawn anything observable
}

func TestNotifier_Deliver_SucceedsFirstAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NotEmpty(t, r.Header.Get("Provider-Sig"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier()
	n.deliver(srv.URL, Payload{ID: "p1", Status: entities.StatusPaid})
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNotifier_Deliver_RetriesThenSucceeds(t *testing.T) {
	orig := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = orig }()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notif := newTestNotifier()
	notif.deliver(srv.URL, Payload{ID: "p1", Status: entities.StatusFailed})
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNotifier_Deliver_ExhaustsAllAttempts(t *testing.T) {
	orig := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = orig }()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	notif := newTestNotifier()
	notif.deliver(srv.URL, Payload{ID: "p1", Status: entities.StatusExpired})
	require.Equal(t, int32(len(backoff)), atomic.LoadInt32(&calls))
}
