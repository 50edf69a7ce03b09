// Package scheduler aligns polling cycles to candle-close boundaries so each
// cycle evaluates exactly one freshly closed bar.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Settle is the grace period after a candle boundary before polling, giving
// the exchange time to finalize the bar.
const Settle = 2 * time.Second

// timeframeDurations covers every timeframe the sources accept.
var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"10m": 10 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// TimeframeDuration resolves a timeframe string to its bar duration.
func TimeframeDuration(tf string) (time.Duration, error) {
	d, ok := timeframeDurations[tf]
	if !ok {
		return 0, fmt.Errorf("scheduler: unknown timeframe %q", tf)
	}
	return d, nil
}

// UntilNextClose returns how long to wait from now until the next candle
// boundary plus the settle grace. Boundaries are aligned to the Unix epoch,
// matching how exchanges bucket candles.
func UntilNextClose(now time.Time, tf time.Duration) time.Duration {
	elapsed := time.Duration(now.UnixNano()) % tf
	return tf - elapsed + Settle
}

// Ticker fires once shortly after every candle close of its timeframe.
type Ticker struct {
	tf  time.Duration
	now func() time.Time
}

// NewTicker builds a candle-close ticker for the given timeframe string.
func NewTicker(tf string) (*Ticker, error) {
	d, err := TimeframeDuration(tf)
	if err != nil {
		return nil, err
	}
	return &Ticker{tf: d, now: time.Now}, nil
}

// Wait blocks until the next candle close (plus settle) or ctx cancellation.
// It returns ctx.Err when cancelled, nil when the boundary was reached.
func (t *Ticker) Wait(ctx context.Context) error {
	timer := time.NewTimer(UntilNextClose(t.now(), t.tf))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
