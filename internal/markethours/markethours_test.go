package markethours

import (
	"testing"
	"time"
)

func ist(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, IST)
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"mid-session weekday", ist(2026, time.September, 2, 11, 0), true},
		{"just after open", ist(2026, time.September, 2, 9, 15), true},
		{"just before open", ist(2026, time.September, 2, 9, 14), false},
		{"at close", ist(2026, time.September, 2, 15, 30), false},
		{"just before close", ist(2026, time.September, 2, 15, 29), true},
		{"saturday", ist(2026, time.September, 5, 11, 0), false},
		{"sunday", ist(2026, time.September, 6, 11, 0), false},
		{"gandhi jayanti holiday", ist(2026, time.October, 2, 11, 0), false},
	}
	for _, c := range cases {
		if got := IsMarketOpen(c.at); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsMarketOpen_ConvertsToIST(t *testing.T) {
	// 06:00 UTC == 11:30 IST, a Wednesday mid-session.
	at := time.Date(2026, time.September, 2, 6, 0, 0, 0, time.UTC)
	if !IsMarketOpen(at) {
		t.Error("06:00 UTC on a trading day should be open (11:30 IST)")
	}
}

func TestNextOpen(t *testing.T) {
	// Before open on a trading day -> same day 9:15.
	got := NextOpen(ist(2026, time.September, 2, 8, 0))
	want := ist(2026, time.September, 2, 9, 15)
	if !got.Equal(want) {
		t.Errorf("before open: got %v, want %v", got, want)
	}

	// Friday after close -> Monday 9:15.
	got = NextOpen(ist(2026, time.September, 4, 16, 0))
	want = ist(2026, time.September, 7, 9, 15)
	if !got.Equal(want) {
		t.Errorf("friday evening: got %v, want %v", got, want)
	}

	// Day before Gandhi Jayanti (Fri Oct 2) after close -> skips holiday and
	// weekend to Monday Oct 5.
	got = NextOpen(ist(2026, time.October, 1, 16, 0))
	want = ist(2026, time.October, 5, 9, 15)
	if !got.Equal(want) {
		t.Errorf("pre-holiday: got %v, want %v", got, want)
	}
}

func TestTimeUntilOpen(t *testing.T) {
	at := ist(2026, time.September, 2, 9, 0)
	if d := TimeUntilOpen(at); d != 15*time.Minute {
		t.Errorf("got %v, want 15m", d)
	}
}
