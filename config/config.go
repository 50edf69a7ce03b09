package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID string
	WebhookURL     string // optional HTTP endpoint receiving alerts as JSON
	DryRun         bool   // log alerts instead of sending them

	// Delta Exchange India
	DeltaBaseURL string
	DeltaAPIKey  string // optional for public OHLCV

	// Angel One credentials (required only when an angel target is watched)
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	LogLevel      string

	// Strategy parameters (Pine Script input defaults)
	RSILength  int
	Lookback   int
	BuyRSIMin  float64
	SellRSIMax float64
	MarginBars int
	FetchCount int

	// Watched targets (comma-separated, see ParseTargets)
	WatchTargets string
}

// Target is one watched (source, instrument, timeframe) combination.
type Target struct {
	Source    string // "delta" or "angel"
	Symbol    string // display symbol, e.g. "BTCUSD", "Nifty50"
	Token     string // exchange instrument token (angel only)
	Timeframe string // "5m", "15m", "1h", ...
	Gated     bool   // evaluate only during market hours
}

// Key returns a unique identifier for this target: "source:symbol:tf".
func (t Target) Key() string {
	return t.Source + ":" + t.Symbol + ":" + t.Timeframe
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		DryRun:         getEnvBool("DRY_RUN", false),

		DeltaBaseURL: getEnv("DELTA_BASE_URL", "https://api.india.delta.exchange"),
		DeltaAPIKey:  getEnv("DELTA_API_KEY", ""),

		AngelAPIKey:     getEnv("ANGEL_API_KEY", ""),
		AngelClientCode: getEnv("ANGEL_CLIENT_CODE", ""),
		AngelPassword:   getEnv("ANGEL_PASSWORD", ""),
		AngelTOTPSecret: getEnv("ANGEL_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		RSILength:  getEnvInt("RSI_LENGTH", 14),
		Lookback:   getEnvInt("DIV_LOOKBACK", 7),
		BuyRSIMin:  getEnvFloat("RSI_BUY_MIN", 40),
		SellRSIMax: getEnvFloat("RSI_SELL_MAX", 60),
		MarginBars: getEnvInt("MARGIN_BARS", 5),
		FetchCount: getEnvInt("CANDLES_FETCH", 100),

		// Default: BTCUSD 5m on Delta Exchange
		WatchTargets: getEnv("WATCH_TARGETS", "delta:BTCUSD:5m"),
	}
}

// ParseTargets parses the WatchTargets string. Entries are comma-separated:
//
//	delta:<symbol>:<timeframe>          e.g. delta:BTCUSD:5m (REST polling)
//	delta-ws:<symbol>:<timeframe>       e.g. delta-ws:BTCUSD:5m (websocket stream)
//	angel:<symbol>:<token>:<timeframe>  e.g. angel:Nifty50:99926000:5m
//
// Angel One targets are always market-hours gated.
func (c *Config) ParseTargets() ([]Target, error) {
	var targets []Target
	for _, entry := range strings.Split(c.WatchTargets, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		switch {
		case len(parts) == 3 && (parts[0] == "delta" || parts[0] == "delta-ws"):
			targets = append(targets, Target{
				Source: parts[0], Symbol: parts[1], Timeframe: parts[2],
			})
		case len(parts) == 4 && parts[0] == "angel":
			targets = append(targets, Target{
				Source: "angel", Symbol: parts[1], Token: parts[2],
				Timeframe: parts[3], Gated: true,
			})
		default:
			return nil, fmt.Errorf("invalid target entry %q", entry)
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets configured")
	}
	return targets, nil
}

// Validate checks cross-field requirements that depend on the target list.
func (c *Config) Validate(targets []Target) error {
	if !c.DryRun && (c.TelegramToken == "" || c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID required unless DRY_RUN=true")
	}
	for _, t := range targets {
		if t.Source == "angel" {
			if c.AngelAPIKey == "" || c.AngelClientCode == "" || c.AngelPassword == "" || c.AngelTOTPSecret == "" {
				return fmt.Errorf("angel target %s needs ANGEL_API_KEY, ANGEL_CLIENT_CODE, ANGEL_PASSWORD, ANGEL_TOTP_SECRET", t.Key())
			}
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}
