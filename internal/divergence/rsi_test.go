package divergence

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func TestRSI_WilderReference(t *testing.T) {
	// 15 closes, length 14: one full seed period. Hand-calculated:
	// sum of gains over the 14 deltas = 3.68, sum of losses = 1.40
	// avgGain = 3.68/14, avgLoss = 1.40/14, RS = 2.62857...
	// RSI = 100 - 100/(1+RS) = 72.4409...
	closes := []float64{
		44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10,
		45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28,
	}
	out := ComputeRSI(closes, 14)
	if len(out) != len(closes) {
		t.Fatalf("length: got %d, want %d", len(out), len(closes))
	}
	for i := 0; i < 14; i++ {
		if out[i].Valid {
			t.Errorf("entry %d: expected undefined, got %.4f", i, out[i].V)
		}
	}
	if !out[14].Valid {
		t.Fatal("entry 14: expected defined RSI")
	}
	assertClose(t, "RSI(14) seed value", out[14].V, 72.4409, 0.001)
}

func TestRSI_SmoothingStep(t *testing.T) {
	// length 2, closes 1,2,3,2:
	// seed: gains 1,1 -> avgGain=1, avgLoss=0 -> RSI=100 at index 2
	// next delta -1: avgGain=(1*1+0)/2=0.5, avgLoss=(0*1+1)/2=0.5 -> RS=1 -> RSI=50
	out := ComputeRSI([]float64{1, 2, 3, 2}, 2)
	if !out[2].Valid || !out[3].Valid {
		t.Fatal("expected defined RSI at indices 2 and 3")
	}
	assertClose(t, "RSI at seed", out[2].V, 100.0, 1e-9)
	assertClose(t, "RSI after one smoothing step", out[3].V, 50.0, 1e-9)
}

func TestRSI_AllGainsSaturates(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := ComputeRSI(closes, 14)
	for i := 14; i < len(out); i++ {
		if !out[i].Valid {
			t.Fatalf("entry %d: expected defined RSI", i)
		}
		assertClose(t, "RSI with zero losses", out[i].V, 100.0, 1e-9)
	}
}

func TestRSI_InsufficientHistory(t *testing.T) {
	out := ComputeRSI([]float64{44, 44.34, 44.09}, 14)
	for i, v := range out {
		if v.Valid {
			t.Errorf("entry %d: expected undefined with only %d closes", i, 3)
		}
	}
}
