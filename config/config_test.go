package config

import "testing"

func TestParseTargets(t *testing.T) {
	c := &Config{WatchTargets: "delta:BTCUSD:5m, delta:BTCUSD:1h ,angel:Nifty50:99926000:5m"}
	targets, err := c.ParseTargets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(targets))
	}
	if targets[0].Source != "delta" || targets[0].Symbol != "BTCUSD" || targets[0].Timeframe != "5m" {
		t.Errorf("target 0: %+v", targets[0])
	}
	if targets[0].Gated {
		t.Error("delta targets are not market-hours gated")
	}
	a := targets[2]
	if a.Source != "angel" || a.Token != "99926000" || a.Timeframe != "5m" || !a.Gated {
		t.Errorf("angel target: %+v", a)
	}
	if a.Key() != "angel:Nifty50:5m" {
		t.Errorf("key: %s", a.Key())
	}
}

func TestParseTargets_WebsocketVariant(t *testing.T) {
	c := &Config{WatchTargets: "delta-ws:BTCUSD:5m"}
	targets, err := c.ParseTargets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[0].Source != "delta-ws" || targets[0].Gated {
		t.Errorf("target: %+v", targets[0])
	}
}

func TestParseTargets_Invalid(t *testing.T) {
	for _, bad := range []string{"", "binance:BTCUSDT:5m", "delta:BTCUSD", "angel:Nifty50:5m"} {
		c := &Config{WatchTargets: bad}
		if _, err := c.ParseTargets(); err == nil {
			t.Errorf("WatchTargets=%q: expected error", bad)
		}
	}
}

func TestValidate(t *testing.T) {
	targets := []Target{{Source: "delta", Symbol: "BTCUSD", Timeframe: "5m"}}

	c := &Config{DryRun: true}
	if err := c.Validate(targets); err != nil {
		t.Errorf("dry-run without telegram creds should pass: %v", err)
	}

	c = &Config{}
	if err := c.Validate(targets); err == nil {
		t.Error("live mode without telegram creds must fail")
	}

	c = &Config{DryRun: true}
	angel := append(targets, Target{Source: "angel", Symbol: "Nifty50", Token: "99926000", Timeframe: "5m"})
	if err := c.Validate(angel); err == nil {
		t.Error("angel target without credentials must fail")
	}
}
