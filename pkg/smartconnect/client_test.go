package smartconnect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCandleDataParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != routeCandles {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-PrivateKey") != "key" {
			t.Errorf("missing X-PrivateKey header")
		}
		w.Write([]byte(`{"status":true,"message":"SUCCESS","data":[
			["2026-08-28T09:15:00+05:30",100.5,101.0,100.0,100.8,12345],
			["2026-08-28T09:20:00+05:30",100.8,101.5,100.6,101.2,9876]
		]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", RootURL: srv.URL})
	candles, err := c.CandleData(context.Background(), CandleRequest{
		Exchange: "NSE", SymbolToken: "99926000", Interval: "FIVE_MINUTE",
		FromDate: "2026-08-28 09:00", ToDate: "2026-08-28 10:00",
	})
	if err != nil {
		t.Fatalf("CandleData: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	first := candles[0]
	if first.Open != 100.5 || first.High != 101.0 || first.Low != 100.0 || first.Close != 100.8 || first.Volume != 12345 {
		t.Errorf("bad first candle: %+v", first)
	}
	if first.Time.Hour() != 9 || first.Time.Minute() != 15 {
		t.Errorf("bad timestamp: %v", first.Time)
	}
	if !candles[1].Time.After(first.Time) {
		t.Errorf("rows out of order")
	}
}

func TestSessionExpiryHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", RootURL: srv.URL})
	fired := false
	c.SessionExpiryHook = func() { fired = true }

	_, err := c.CandleData(context.Background(), CandleRequest{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !fired {
		t.Errorf("expiry hook not invoked")
	}
}

func TestCandleDataAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":false,"message":"Invalid Token","errorcode":"AG8001"}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", RootURL: srv.URL})
	if _, err := c.CandleData(context.Background(), CandleRequest{}); err == nil {
		t.Fatal("expected error on status=false")
	}
}
