// Package redis publishes fired signals onto a capped Redis stream and keeps
// per-target cursor keys so a restarted process does not re-alert on bars it
// already evaluated.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
)

const (
	signalStream    = "signals"
	signalMaxLen    = 10000
	cursorKeyPrefix = "signals:last_bar:"
	cursorTTL       = 7 * 24 * time.Hour
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes signals to Redis Streams for downstream consumers.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Publisher{client: client}, nil
}

// Publish appends one signal to the capped signals stream.
func (p *Publisher) Publish(ctx context.Context, ev divergence.Event) error {
	err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: signalStream,
		MaxLen: signalMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":      string(ev.Kind),
			"symbol":    ev.Symbol,
			"timeframe": ev.Timeframe,
			"bar_time":  ev.BarTime,
			"close":     ev.Close,
			"rsi":       ev.RSI,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd: %w", err)
	}
	return nil
}

// SetLastBarTime records the newest evaluated bar for a target.
func (p *Publisher) SetLastBarTime(ctx context.Context, targetKey string, barTime int64) error {
	err := p.client.Set(ctx, cursorKeyPrefix+targetKey, barTime, cursorTTL).Err()
	if err != nil {
		return fmt.Errorf("redis set cursor: %w", err)
	}
	return nil
}

// LastBarTime returns the newest evaluated bar time recorded for a target,
// or 0 when none is recorded.
func (p *Publisher) LastBarTime(ctx context.Context, targetKey string) (int64, error) {
	val, err := p.client.Get(ctx, cursorKeyPrefix+targetKey).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get cursor: %w", err)
	}
	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis cursor value %q: %w", val, err)
	}
	return ts, nil
}

// Close releases the client.
func (p *Publisher) Close() error { return p.client.Close() }
