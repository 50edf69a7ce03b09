package divergence

import "github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"

// Row is the derived state for one bar: the RSI value, the rolling
// highest/lowest-RSI anchors with the closes observed when each anchor was
// last set, and the divergence flags evaluated on this bar.
type Row struct {
	RSI      Float
	MaxRSI   Float
	MaxClose Float
	MinRSI   Float
	MinClose Float
	DivBear  bool
	DivBull  bool
}

// Track folds the bar window into per-bar rows, maintaining the rolling
// RSI-extremum anchors with carry-forward and flagging divergences.
//
// Per bar i with a defined RSI value:
//  1. The current bar is a new high/low if its RSI equals the max/min of the
//     trailing lookback window (exact equality: ties anchor to the current bar).
//  2. New extreme: anchor RSI and close to this bar. Otherwise carry the prior
//     anchor forward; the first defined bar always anchors to itself.
//  3. Clamp so the anchored pair never understates the true local extreme:
//     maxClose/maxRSI are raised to this bar's close/RSI, min symmetric.
//  4. From the third defined-anchor bar on, flag bearish divergence when price
//     posted a higher high (maxClose[i-1] > maxClose[i-2]) while the prior RSI
//     sits below the current anchored max and momentum keeps fading
//     (rsi[i] <= rsi[i-1]); bullish is the mirror image. Both flags can be set
//     on the same bar; the trigger state machine applies precedence.
//
// Bars with undefined RSI pass through with every tracked value undefined.
func Track(bars []model.Bar, rsi []Float, lookback int) []Row {
	rows := make([]Row, len(bars))
	for i := range bars {
		r := rsi[i]
		if !r.Valid {
			continue
		}
		row := Row{RSI: r}

		wmax, wmin := windowExtremes(rsi, i, lookback)

		if r.V == wmax {
			row.MaxRSI, row.MaxClose = r, F(bars[i].Close)
		} else if rows[i-1].MaxRSI.Valid {
			row.MaxRSI, row.MaxClose = rows[i-1].MaxRSI, rows[i-1].MaxClose
		} else {
			row.MaxRSI, row.MaxClose = r, F(bars[i].Close)
		}
		if bars[i].Close > row.MaxClose.V {
			row.MaxClose = F(bars[i].Close)
		}
		if r.V > row.MaxRSI.V {
			row.MaxRSI = r
		}

		if r.V == wmin {
			row.MinRSI, row.MinClose = r, F(bars[i].Close)
		} else if rows[i-1].MinRSI.Valid {
			row.MinRSI, row.MinClose = rows[i-1].MinRSI, rows[i-1].MinClose
		} else {
			row.MinRSI, row.MinClose = r, F(bars[i].Close)
		}
		if bars[i].Close < row.MinClose.V {
			row.MinClose = F(bars[i].Close)
		}
		if r.V < row.MinRSI.V {
			row.MinRSI = r
		}

		if i >= 2 {
			prev, prev2 := rows[i-1], rows[i-2]
			r1 := rsi[i-1]
			if prev.MaxClose.Valid && prev2.MaxClose.Valid && r1.Valid &&
				prev.MaxClose.V > prev2.MaxClose.V && r1.V < row.MaxRSI.V && r.V <= r1.V {
				row.DivBear = true
			}
			if prev.MinClose.Valid && prev2.MinClose.Valid && r1.Valid &&
				prev.MinClose.V < prev2.MinClose.V && r1.V > row.MinRSI.V && r.V >= r1.V {
				row.DivBull = true
			}
		}

		rows[i] = row
	}
	return rows
}

// windowExtremes returns the max and min of the defined RSI values in
// rsi[max(0, i-lookback+1) .. i]. rsi[i] is defined by the caller, so the
// window is never empty.
func windowExtremes(rsi []Float, i, lookback int) (float64, float64) {
	start := i - lookback + 1
	if start < 0 {
		start = 0
	}
	wmax, wmin := rsi[i].V, rsi[i].V
	for j := start; j < i; j++ {
		if !rsi[j].Valid {
			continue
		}
		if rsi[j].V > wmax {
			wmax = rsi[j].V
		}
		if rsi[j].V < wmin {
			wmin = rsi[j].V
		}
	}
	return wmax, wmin
}
