package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
	"stock-alert-bot/internal/alert"
	"stock-alert-bot/internal/metrics"
	"stock-alert-bot/internal/price"
)

type blockingQuotes struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingQuotes) Name() string { return "blocking" }

func (b *blockingQuotes) Quote(ctx context.Context, symbol string) (*price.Quote, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return &price.Quote{Symbol: symbol, Price: 1000}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

type testEnv struct {
	srv      *Server
	store    *alert.Store
	quotes   *blockingQuotes
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	env := &testEnv{
		store:    alert.NewStore(),
		quotes:   &blockingQuotes{started: make(chan struct{}), release: make(chan struct{})},
		notifier: &recordingNotifier{},
	}
	svc := alert.NewService(env.store, env.quotes, env.notifier, metrics.New(reg), alert.Options{CurrencySymbol: "₹"})
	opts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	env.srv = New(svc, opts)
	return env
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp messageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Message
}

func TestSetAlert(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "string target", body: `{"stockSymbol":"aapl","targetPrice":"150"}`},
		{name: "numeric target", body: `{"stockSymbol":"aapl","targetPrice":150}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})

			rr := do(t, env.srv.Handler(), http.MethodPost, "/set-alert", tt.body)

			require.Equal(t, http.StatusCreated, rr.Code)
			require.Equal(t, "Alert set for AAPL at ₹150", decodeMessage(t, rr))
			require.Equal(t, 1, env.store.Len())
			require.Equal(t, "AAPL", env.store.Snapshot()[0].Symbol)
		})
	}
}

func TestSetAlertValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing symbol", body: `{"targetPrice":150}`},
		{name: "missing target", body: `{"stockSymbol":"AAPL"}`},
		{name: "null target", body: `{"stockSymbol":"AAPL","targetPrice":null}`},
		{name: "non numeric target", body: `{"stockSymbol":"AAPL","targetPrice":"soon"}`},
		{name: "boolean target", body: `{"stockSymbol":"AAPL","targetPrice":true}`},
		{name: "malformed json", body: `{"stockSymbol":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})

			rr := do(t, env.srv.Handler(), http.MethodPost, "/set-alert", tt.body)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotEmpty(t, decodeMessage(t, rr))
			require.Zero(t, env.store.Len())
		})
	}
}

func TestTriggerCheckRespondsImmediately(t *testing.T) {
	env := newTestEnv(t, Options{EnableTrigger: true})
	h := env.srv.Handler()
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/set-alert", `{"stockSymbol":"AAPL","targetPrice":150}`).Code)

	// The quote provider blocks, so the response proves the cycle is detached.
	rr := do(t, h, http.MethodGet, "/trigger-check", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Price check triggered successfully.", decodeMessage(t, rr))

	<-env.quotes.started
	close(env.quotes.release)
	env.srv.checks.Wait()

	require.Zero(t, env.store.Len())
	require.Len(t, env.notifier.sent, 1)
}

func TestTriggerCheckDisabledInTimerMode(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := do(t, env.srv.Handler(), http.MethodGet, "/trigger-check", "")

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListAlerts(t *testing.T) {
	env := newTestEnv(t, Options{})
	h := env.srv.Handler()
	do(t, h, http.MethodPost, "/set-alert", `{"stockSymbol":"aapl","targetPrice":150}`)
	do(t, h, http.MethodPost, "/set-alert", `{"stockSymbol":"tsla","targetPrice":"300.5"}`)

	rr := do(t, h, http.MethodGet, "/alerts", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var resp alertsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Alerts, 2)
	require.Equal(t, "TSLA", resp.Alerts[0].Symbol)
	require.Equal(t, 300.5, resp.Alerts[0].Target)
	require.Equal(t, "AAPL", resp.Alerts[1].Symbol)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, Options{})
	h := env.srv.Handler()
	do(t, h, http.MethodPost, "/set-alert", `{"stockSymbol":"aapl","targetPrice":150}`)

	health := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, health.Code)
	require.Equal(t, "OK", health.Body.String())

	m := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, m.Code)
	require.Contains(t, m.Body.String(), "stock_alert_bot_alerts_registered_total 1")
}

func TestSetAlertWrongMethod(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := do(t, env.srv.Handler(), http.MethodGet, "/set-alert", "")

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRecoverPanic(t *testing.T) {
	h := recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := do(t, h, http.MethodGet, "/", "")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
