package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
)

func sampleAlert() Alert {
	return Alert{
		Title: "🟢 Bullish RSI Divergence Detected",
		Body:  "Symbol : BTCUSD",
		Event: divergence.Event{
			Kind: divergence.KindDivBull, Symbol: "BTCUSD", Timeframe: "5m",
			BarTime: 1700000000, Close: 37123.5, RSI: 28.4,
		},
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got["kind"] != "DIVBULL" || got["symbol"] != "BTCUSD" || got["timeframe"] != "5m" {
		t.Errorf("payload identity fields: %+v", got)
	}
	if got["bar_time"].(float64) != 1700000000 {
		t.Errorf("bar_time = %v", got["bar_time"])
	}
	if got["title"] == "" || got["sent_at"] == "" {
		t.Errorf("payload missing title/sent_at: %+v", got)
	}
}

func TestWebhookNotifierRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), sampleAlert()); err == nil {
		t.Fatal("Send on 502 should fail")
	}
}

type countingNotifier struct {
	sent int
	err  error
}

func (c *countingNotifier) Send(context.Context, Alert) error {
	c.sent++
	return c.err
}

func TestMultiNotifierFansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	n := NewMultiNotifier(a, b)

	if err := n.Send(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if a.sent != 1 || b.sent != 1 {
		t.Errorf("sent = %d/%d, want 1/1", a.sent, b.sent)
	}
}

func TestMultiNotifierDeliversPastFailure(t *testing.T) {
	bad := &countingNotifier{err: errors.New("telegram down")}
	ok := &countingNotifier{}
	n := NewMultiNotifier(bad, ok)

	err := n.Send(context.Background(), sampleAlert())
	if err == nil {
		t.Fatal("expected joined error from failing backend")
	}
	if ok.sent != 1 {
		t.Errorf("second backend sent = %d, want 1", ok.sent)
	}
}
