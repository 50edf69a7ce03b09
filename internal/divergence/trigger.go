package divergence

import "github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"

// Signals is the per-bar outcome of the trigger state machine.
type Signals struct {
	DivBear bool `json:"divbear"`
	DivBull bool `json:"divbull"`
	Buy     bool `json:"buy"`
	Sell    bool `json:"sell"`
}

// Any reports whether at least one signal fired.
func (s Signals) Any() bool {
	return s.DivBear || s.DivBull || s.Buy || s.Sell
}

// Trigger tracks armed breakout levels across bars. It is the only mutable
// state in the pipeline and must not be shared between instrument/timeframe
// pairs. At most one of the two trigger levels is armed at any time.
type Trigger struct {
	bull Float // high of the bullish divergence bar; break above confirms BUY
	bear Float // low of the bearish divergence bar; break below confirms SELL

	buyRSIMin  float64
	sellRSIMax float64
}

// NewTrigger creates a trigger state machine with both levels unarmed.
func NewTrigger(buyRSIMin, sellRSIMax float64) *Trigger {
	return &Trigger{buyRSIMin: buyRSIMin, sellRSIMax: sellRSIMax}
}

// Update processes one closed bar's derived row. Evaluation order per bar:
//
//  1. A fresh bearish divergence arms bearTrigger at this bar's low and
//     disarms bullTrigger; bullish arms bullTrigger at this bar's high and
//     disarms bearTrigger. When both flags are set on the same bar, bearish
//     wins the arming (documented precedence, mirrored from the upstream
//     strategy) though both flags are still reported.
//  2. Breakouts are checked against the post-arming levels, so a trigger armed
//     on this bar can break on this same bar.
//  3. BUY confirms only when RSI clears buyRSIMin; SELL only when RSI is under
//     sellRSIMax.
//  4. A broken trigger is consumed whether or not the RSI filter passed.
//     Fire-or-expire: an unconfirmed break does not re-arm.
func (t *Trigger) Update(bar model.Bar, row Row) Signals {
	sig := Signals{DivBear: row.DivBear, DivBull: row.DivBull}

	if row.DivBear {
		t.bear = F(bar.Low)
		t.bull = Float{}
	} else if row.DivBull {
		t.bull = F(bar.High)
		t.bear = Float{}
	}

	bullBroke := t.bull.Valid && bar.High >= t.bull.V
	bearBroke := t.bear.Valid && bar.Low <= t.bear.V

	if bullBroke && row.RSI.Valid && row.RSI.V > t.buyRSIMin {
		sig.Buy = true
	}
	if bearBroke && row.RSI.Valid && row.RSI.V < t.sellRSIMax {
		sig.Sell = true
	}

	if bullBroke {
		t.bull = Float{}
	}
	if bearBroke {
		t.bear = Float{}
	}
	return sig
}

// BullTrigger returns the armed bullish breakout level, if any.
func (t *Trigger) BullTrigger() Float { return t.bull }

// BearTrigger returns the armed bearish breakout level, if any.
func (t *Trigger) BearTrigger() Float { return t.bear }
