// Package source defines the market-data interface the signal runner
// consumes. Adapters for concrete exchanges live in subpackages.
package source

import (
	"context"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
)

// Source delivers closed candles for one instrument and timeframe.
//
// Fetch returns up to count bars ordered oldest-first with the newest bar
// last. The still-forming candle must never be included; only closed bars
// feed the engine.
type Source interface {
	// Name identifies the adapter, e.g. "delta" or "angel".
	Name() string
	// Fetch returns the most recent closed bars, at most count.
	Fetch(ctx context.Context, count int) ([]model.Bar, error)
}
