package notification

import (
	"fmt"
	"time"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
)

// FormatAlert renders a signal event into a human-readable alert.
// label is the price currency marker ("$", "₹"); loc is the timezone the
// audience reads bar times in (UTC for crypto, IST for NSE instruments).
func FormatAlert(ev divergence.Event, label string, loc *time.Location) Alert {
	if loc == nil {
		loc = time.UTC
	}
	ts := time.Unix(ev.BarTime, 0).In(loc)
	zone, _ := ts.Zone()

	var title, hint string
	switch ev.Kind {
	case divergence.KindDivBear:
		title = "🔴 Bearish RSI Divergence Detected"
		hint = "⚠️ Watch for SELL break below divergence low"
	case divergence.KindDivBull:
		title = "🟢 Bullish RSI Divergence Detected"
		hint = "⚠️ Watch for BUY break above divergence high"
	case divergence.KindBuy:
		title = "✅ BUY CONFIRMED ▲"
		hint = "Candle broke above divergence high with RSI filter passing"
	case divergence.KindSell:
		title = "🔻 SELL CONFIRMED ▼"
		hint = "Candle broke below divergence low with RSI filter passing"
	default:
		title = "Signal: " + string(ev.Kind)
	}

	body := fmt.Sprintf(
		"Symbol : %s  |  TF : %s\nTime   : %s %s\nClose  : %s%.2f  |  RSI : %.2f\n%s",
		ev.Symbol, ev.Timeframe,
		ts.Format("2006-01-02 15:04"), zone,
		label, ev.Close, ev.RSI,
		hint,
	)
	return Alert{Title: title, Body: body, Event: ev}
}
