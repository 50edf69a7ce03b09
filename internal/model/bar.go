package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Bar represents one closed OHLCV candle for a single instrument/timeframe.
// Prices are decimal float64 as delivered by the upstream APIs (USD for
// Delta Exchange products, index points / rupees for Angel One).
// A Bar is never mutated after construction.
type Bar struct {
	Time   int64   `json:"time"` // bucket start, unix seconds (UTC)
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TS returns the bar's bucket start as a time.Time in UTC.
func (b Bar) TS() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// ValidateBars checks a batch of bars delivered by a candle source before it
// reaches the signal engine. The whole batch is rejected on the first
// violation: a malformed candle means the feed itself is suspect and computing
// on the rest would produce garbage signals.
//
// Checks per bar: all numeric fields finite, low <= open,close <= high,
// timestamps strictly increasing across the batch.
func ValidateBars(bars []Bar) error {
	var prevTime int64
	for i, b := range bars {
		for _, f := range [5]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("bar %d (ts=%d): non-finite field", i, b.Time)
			}
		}
		if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
			return fmt.Errorf("bar %d (ts=%d): OHLC out of range (o=%g h=%g l=%g c=%g)",
				i, b.Time, b.Open, b.High, b.Low, b.Close)
		}
		if i > 0 && b.Time <= prevTime {
			return fmt.Errorf("bar %d: time %d not increasing (prev %d)", i, b.Time, prevTime)
		}
		prevTime = b.Time
	}
	return nil
}

// Closes extracts the close series from a bar window, oldest first.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
