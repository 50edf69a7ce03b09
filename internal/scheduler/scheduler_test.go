package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestUntilNextClose(t *testing.T) {
	tf := 5 * time.Minute

	// 90s into a 5m candle: 210s remain plus settle.
	base := time.Unix(1_700_000_100, 0) // aligned: 1_700_000_100 % 300 == 0
	now := base.Add(90 * time.Second)

	got := UntilNextClose(now, tf)
	want := 210*time.Second + Settle
	if got != want {
		t.Errorf("UntilNextClose = %v, want %v", got, want)
	}

	// Exactly on a boundary: a full period plus settle.
	if got := UntilNextClose(base, tf); got != tf+Settle {
		t.Errorf("at boundary: %v, want %v", got, tf+Settle)
	}
}

func TestTimeframeDuration(t *testing.T) {
	d, err := TimeframeDuration("15m")
	if err != nil || d != 15*time.Minute {
		t.Errorf("15m -> %v, %v", d, err)
	}
	if _, err := TimeframeDuration("90m"); err == nil {
		t.Error("expected error for unknown timeframe")
	}
}

func TestTickerWaitCancellation(t *testing.T) {
	tick, err := NewTicker("1h")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tick.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}

func TestTickerWaitFires(t *testing.T) {
	tick := &Ticker{tf: 50 * time.Millisecond, now: time.Now}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := tick.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("fired before boundary")
	}
}
