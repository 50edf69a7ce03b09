package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(JournalConfig{DBPath: filepath.Join(t.TempDir(), "signals.db")})
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	events := []divergence.Event{
		{Kind: divergence.KindDivBear, Symbol: "BTCUSD", Timeframe: "5m", BarTime: 1000, Close: 105.8, RSI: 73.1},
		{Kind: divergence.KindBuy, Symbol: "BTCUSD", Timeframe: "5m", BarTime: 2000, Close: 100.6, RSI: 41.2},
		{Kind: divergence.KindSell, Symbol: "NIFTY50", Timeframe: "5m", BarTime: 1500, Close: 22000, RSI: 55.0},
	}
	for _, ev := range events {
		if err := j.Append(ctx, ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := j.Recent(ctx, "BTCUSD", "5m", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].Kind != divergence.KindBuy || got[0].BarTime != 2000 {
		t.Errorf("newest first violated: %+v", got[0])
	}
	if got[1].Kind != divergence.KindDivBear {
		t.Errorf("second row = %+v", got[1])
	}
}

func TestAppendIdempotentPerBar(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	ev := divergence.Event{Kind: divergence.KindBuy, Symbol: "BTCUSD", Timeframe: "5m", BarTime: 3000, Close: 100, RSI: 45}
	for i := 0; i < 3; i++ {
		if err := j.Append(ctx, ev); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	got, err := j.Recent(ctx, "BTCUSD", "5m", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("duplicate rows journaled: %d", len(got))
	}
}

func TestLastBarTime(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	if ts, err := j.LastBarTime(ctx, "BTCUSD", "5m"); err != nil || ts != 0 {
		t.Errorf("empty journal: ts=%d err=%v", ts, err)
	}

	j.Append(ctx, divergence.Event{Kind: divergence.KindBuy, Symbol: "BTCUSD", Timeframe: "5m", BarTime: 4000})
	j.Append(ctx, divergence.Event{Kind: divergence.KindSell, Symbol: "BTCUSD", Timeframe: "5m", BarTime: 3500})

	ts, err := j.LastBarTime(ctx, "BTCUSD", "5m")
	if err != nil {
		t.Fatalf("LastBarTime: %v", err)
	}
	if ts != 4000 {
		t.Errorf("ts = %d, want 4000", ts)
	}
}
