package divergence

import (
	"testing"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
)

// scenarioBars builds a 48-bar series shaped to produce one bearish and one
// bullish divergence through the full RSI pipeline: quiet warmup, a rally to
// an RSI high, a pullback, a higher price high on fading momentum (bearish),
// then a selloff to an RSI low, a bounce, and a lower price low on improving
// momentum (bullish).
func scenarioBars() []model.Bar {
	deltas := []float64{
		// warmup, enough for the RSI seed
		0.2, -0.1, 0.3, -0.2, 0.1, 0.2, -0.1, 0.3, 0.1, -0.2, 0.2, 0.1, -0.1, 0.2,
		// quiet padding so the pattern lands past the minimum window
		0.1, -0.1, 0.1, -0.1, 0.1, -0.1, 0.1, -0.1, 0.1, -0.1, 0.1, -0.1,
		// rally -> RSI high anchor
		1.5, 1.2, 1.0, 0.8,
		// pullback
		-1.0, -0.8,
		// higher price high, weaker RSI -> bearish divergence
		2.0, 0.3,
		-0.2, -0.4, -0.3,
		// selloff -> RSI low anchor
		-1.5, -1.3, -1.1, -0.9,
		// bounce
		0.9, 0.7,
		// lower price low, improving RSI -> bullish divergence
		-0.8, -0.9,
		0.4, 0.5,
	}
	bars := make([]model.Bar, 0, len(deltas)+1)
	close := 100.0
	push := func(c float64) {
		bars = append(bars, model.Bar{
			Time: 1700000000 + int64(len(bars))*300,
			Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 10,
		})
	}
	push(close)
	for _, d := range deltas {
		close += d
		push(close)
	}
	return bars
}

func TestEngine_EndToEndScenario(t *testing.T) {
	bars := scenarioBars()
	eng := NewEngine("BTCUSD", "5m", DefaultParams())

	var events []Event
	for end := eng.Params().MinBars(); end <= len(bars); end++ {
		events = append(events, eng.Evaluate(bars[:end])...)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	// Bearish divergence at bar 35: higher high on fading RSI. The bear
	// trigger arms at that bar's low and breaks on the same bar, but
	// RSI ~73 fails the sell filter, so the trigger expires unconfirmed.
	if events[0].Kind != KindDivBear {
		t.Errorf("event 0: got %s, want %s", events[0].Kind, KindDivBear)
	}
	if events[0].BarTime != bars[35].Time {
		t.Errorf("event 0: got bar time %d, want %d", events[0].BarTime, bars[35].Time)
	}
	assertClose(t, "event 0 close", events[0].Close, 105.8, 1e-9)
	assertClose(t, "event 0 rsi", events[0].RSI, 73.1004, 0.001)
	if events[0].Symbol != "BTCUSD" || events[0].Timeframe != "5m" {
		t.Errorf("event 0 labels: got %s/%s", events[0].Symbol, events[0].Timeframe)
	}

	// Bullish divergence at bar 46 arms the bull trigger at that bar's high;
	// the same-bar break confirms BUY since RSI ~41.2 clears the 40 floor.
	if events[1].Kind != KindDivBull || events[2].Kind != KindBuy {
		t.Errorf("events 1,2: got %s,%s want %s,%s",
			events[1].Kind, events[2].Kind, KindDivBull, KindBuy)
	}
	for _, ev := range events[1:] {
		if ev.BarTime != bars[46].Time {
			t.Errorf("%s: got bar time %d, want %d", ev.Kind, ev.BarTime, bars[46].Time)
		}
		assertClose(t, string(ev.Kind)+" close", ev.Close, 100.6, 1e-9)
		assertClose(t, string(ev.Kind)+" rsi", ev.RSI, 41.2495, 0.001)
	}

	if eng.Trigger().BullTrigger().Valid || eng.Trigger().BearTrigger().Valid {
		t.Error("no trigger should remain armed at the end of the scenario")
	}
}

func TestEngine_DuplicateWindowIsNoOp(t *testing.T) {
	bars := scenarioBars()
	eng := NewEngine("BTCUSD", "5m", DefaultParams())

	for end := eng.Params().MinBars(); end <= len(bars); end++ {
		eng.Evaluate(bars[:end])
	}
	lastTime := eng.LastBarTime()

	// Re-present the final window: same newest timestamp, no signals, no
	// state mutation.
	if events := eng.Evaluate(bars); events != nil {
		t.Errorf("re-presented window fired events: %+v", events)
	}
	if eng.LastBarTime() != lastTime {
		t.Error("duplicate delivery mutated lastBarTime")
	}
}

func TestEngine_MinimumHistoryGuard(t *testing.T) {
	bars := scenarioBars()
	eng := NewEngine("BTCUSD", "5m", DefaultParams())

	short := bars[:eng.Params().MinBars()-1]
	if events := eng.Evaluate(short); events != nil {
		t.Errorf("short window fired events: %+v", events)
	}
	if eng.LastBarTime() != 0 {
		t.Error("short window must not mutate engine state")
	}
}

func TestEngine_BarByBarMatchesWindowed(t *testing.T) {
	// The engine must behave identically whether windows grow or slide, as
	// long as each closed bar is presented exactly once as the newest.
	bars := scenarioBars()
	minBars := DefaultParams().MinBars()

	grow := NewEngine("X", "5m", DefaultParams())
	var growEvents []Event
	for end := minBars; end <= len(bars); end++ {
		growEvents = append(growEvents, grow.Evaluate(bars[:end])...)
	}

	slide := NewEngine("X", "5m", DefaultParams())
	var slideEvents []Event
	for end := minBars; end <= len(bars); end++ {
		start := end - minBars
		slideEvents = append(slideEvents, slide.Evaluate(bars[start:end])...)
	}

	if len(growEvents) != len(slideEvents) {
		t.Fatalf("growing windows fired %d events, sliding fired %d",
			len(growEvents), len(slideEvents))
	}
	for i := range growEvents {
		if growEvents[i].Kind != slideEvents[i].Kind || growEvents[i].BarTime != slideEvents[i].BarTime {
			t.Errorf("event %d: grow=%+v slide=%+v", i, growEvents[i], slideEvents[i])
		}
	}
}
