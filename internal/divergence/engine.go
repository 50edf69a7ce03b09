package divergence

import "github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"

// Params configures one engine instance.
type Params struct {
	RSILength  int
	Lookback   int
	BuyRSIMin  float64
	SellRSIMax float64
	MarginBars int
}

// DefaultParams mirrors the Pine Script inputs of the upstream strategy.
func DefaultParams() Params {
	return Params{
		RSILength:  14,
		Lookback:   7,
		BuyRSIMin:  40,
		SellRSIMax: 60,
		MarginBars: 5,
	}
}

// MinBars is the smallest window the engine will evaluate. Below this the
// oscillator seed and the rolling window are unreliable.
func (p Params) MinBars() int {
	return p.RSILength + p.Lookback + p.MarginBars
}

// Kind identifies a fired signal.
type Kind string

const (
	KindDivBear Kind = "DIVBEAR"
	KindDivBull Kind = "DIVBULL"
	KindBuy     Kind = "BUY"
	KindSell    Kind = "SELL"
)

// Event is one fired signal, carrying enough context for a notifier to format
// a human-readable alert without consulting the engine.
type Event struct {
	Kind      Kind    `json:"kind"`
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	BarTime   int64   `json:"bar_time"` // unix seconds
	Close     float64 `json:"close"`
	RSI       float64 `json:"rsi"`
}

// Engine evaluates a trailing window of closed bars for one
// (instrument, timeframe) pair and returns the signals fired on the newest
// bar. The RSI series and extremum rows are recomputed from the presented
// window on every call; only the breakout trigger levels and the last
// processed bar time persist across calls.
type Engine struct {
	symbol    string
	timeframe string
	params    Params

	trigger     *Trigger
	lastBarTime int64
}

// NewEngine creates an engine for one instrument/timeframe pair.
func NewEngine(symbol, timeframe string, params Params) *Engine {
	return &Engine{
		symbol:    symbol,
		timeframe: timeframe,
		params:    params,
		trigger:   NewTrigger(params.BuyRSIMin, params.SellRSIMax),
	}
}

func (e *Engine) Symbol() string    { return e.symbol }
func (e *Engine) Timeframe() string { return e.timeframe }
func (e *Engine) Params() Params    { return e.params }

// LastBarTime returns the timestamp of the last bar fed into the trigger
// state machine, or 0 before the first evaluation.
func (e *Engine) LastBarTime() int64 { return e.lastBarTime }

// Trigger exposes the armed breakout state for inspection.
func (e *Engine) Trigger() *Trigger { return e.trigger }

// Evaluate runs the pipeline over a window of closed bars, oldest first, with
// the still-forming bar already excluded by the caller. Only the newest bar's
// derived row reaches the trigger state machine; older bars drove it in
// earlier calls.
//
// Returns nil without mutating any state when the window is shorter than
// Params.MinBars, or when the newest bar carries the same timestamp as the
// last processed one (the same closed bar re-delivered).
func (e *Engine) Evaluate(bars []model.Bar) []Event {
	if len(bars) < e.params.MinBars() {
		return nil
	}
	newest := bars[len(bars)-1]
	if newest.Time == e.lastBarTime {
		return nil
	}

	rsi := ComputeRSI(model.Closes(bars), e.params.RSILength)
	rows := Track(bars, rsi, e.params.Lookback)
	last := rows[len(rows)-1]

	e.lastBarTime = newest.Time
	sig := e.trigger.Update(newest, last)
	if !sig.Any() {
		return nil
	}

	var events []Event
	emit := func(kind Kind) {
		events = append(events, Event{
			Kind:      kind,
			Symbol:    e.symbol,
			Timeframe: e.timeframe,
			BarTime:   newest.Time,
			Close:     newest.Close,
			RSI:       last.RSI.V,
		})
	}
	if sig.DivBear {
		emit(KindDivBear)
	}
	if sig.DivBull {
		emit(KindDivBull)
	}
	if sig.Buy {
		emit(KindBuy)
	}
	if sig.Sell {
		emit(KindSell)
	}
	return events
}
