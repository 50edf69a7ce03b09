// Package divergence implements the RSI divergence / breakout signal engine.
//
// The pipeline runs in three stages over a window of closed bars:
// Wilder RSI over the close series, a rolling RSI-extremum tracker that flags
// bearish/bullish divergence per bar, and a persistent trigger state machine
// that arms breakout levels and confirms BUY/SELL signals. Each
// (instrument, timeframe) pair owns exactly one Engine instance.
package divergence

// Float is an optional float64. Undefined oscillator values (insufficient
// history) are represented explicitly instead of NaN so that "already
// anchored" checks never trip over NaN comparison semantics.
type Float struct {
	V     float64
	Valid bool
}

// F wraps a defined float64.
func F(v float64) Float {
	return Float{V: v, Valid: true}
}

// ComputeRSI returns the Wilder RSI series for the given closes.
// The result has the same length as the input; the first length entries are
// invalid (Wilder smoothing needs length deltas before the seed average).
//
// Seed: simple average of the first length gains/losses. Thereafter:
// avg = (avg*(length-1) + value) / length. RSI is 100 when avgLoss is zero.
func ComputeRSI(closes []float64, length int) []Float {
	out := make([]Float, len(closes))
	if length <= 0 || len(closes) < length+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= length; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(length)
	avgLoss /= float64(length)
	out[length] = F(rsiFrom(avgGain, avgLoss))

	p := float64(length)
	for i := length + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = F(rsiFrom(avgGain, avgLoss))
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
