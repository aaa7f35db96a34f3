package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/model"
)

var fired = model.AlertEvent{
	ID:           "id-1",
	Symbol:       "AAPL",
	CurrentPrice: 189.5,
	AlertPrice:   190,
	Timestamp:    time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC),
	Message:      "AAPL at 189.50 is within 1% of target 190.00 (-0.26%)",
}

type recorder struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (r *recorder) Send(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func TestFromAlertEvent(t *testing.T) {
	a := FromAlertEvent(fired)
	assert.Equal(t, AlertWarning, a.Level)
	assert.Equal(t, "AAPL near target", a.Title)
	assert.Equal(t, fired.Message, a.Message)
	assert.Equal(t, 189.5, a.Price)
	assert.Equal(t, 190.0, a.Target)
	assert.Equal(t, fired.Timestamp, a.Timestamp)
}

func TestWebhookNotifier(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookNotifier(srv.URL).Send(context.Background(), FromAlertEvent(fired)))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, 190.0, got.Target)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTelegramNotifier(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.apiBase = srv.URL
	require.NoError(t, n.Send(context.Background(), FromAlertEvent(fired)))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "MarkdownV2", body["parse_mode"])
	text := body["text"].(string)
	assert.True(t, strings.HasPrefix(text, "⚠️ *AAPL near target*"))
	assert.Contains(t, text, "Price: `189.50`")
	assert.Contains(t, text, "Target: `190.00`")
	assert.Contains(t, text, `within 1% of target 190\.00 \(\-0\.26%\)`)
}

func TestTelegramNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.apiBase = srv.URL
	err := n.Send(context.Background(), FromAlertEvent(fired))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Contains(t, err.Error(), "AAPL")
}

func TestTelegramNotifier_NotOKWithSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.apiBase = srv.URL
	err := n.Send(context.Background(), FromAlertEvent(fired))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "200")
}

func TestFromAlertEvent_CriticalNearTarget(t *testing.T) {
	ev := fired
	ev.CurrentPrice = 190.1
	a := FromAlertEvent(ev)
	assert.Equal(t, AlertCritical, a.Level)
	assert.True(t, strings.HasPrefix(telegramText(a), "🚨"))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b \(1\.5%\)\!`, escapeMarkdown("a_b (1.5%)!"))
	assert.Equal(t, `c:\\tmp`, escapeMarkdown(`c:\tmp`))
}

func TestMulti(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("down")}
	err := Multi{ok, bad, NewLogNotifier()}.Send(context.Background(), Alert{Title: "t"})

	require.Error(t, err)
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, bad.count())
}

func TestDispatcher_ForwardsOnlyAlerts(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, time.Second)
	var results []error
	d.OnResult = func(err error) { results = append(results, err) }

	events := make(chan model.Event, 4)
	ev := fired
	events <- model.Event{Kind: model.EventSnapshot, Symbol: "AAPL"}
	events <- model.Event{Kind: model.EventAlert, Symbol: "AAPL", Alert: &ev}
	events <- model.Event{Kind: model.EventAlert, Symbol: "AAPL"}
	close(events)

	d.Run(context.Background(), events)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, "AAPL near target", rec.alerts[0].Title)
	assert.Equal(t, []error{nil}, results)
}
