// Package metrics exposes Prometheus metrics and a health endpoint for the
// signal bot.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal bot.
type Metrics struct {
	CyclesTotal     *prometheus.CounterVec // labels: target
	SignalsTotal    *prometheus.CounterVec // labels: target, kind
	FetchErrors     *prometheus.CounterVec // labels: target
	NotifyErrors    *prometheus.CounterVec // labels: target
	GatedSkips      *prometheus.CounterVec // labels: target
	EvalDuration    prometheus.Histogram
	FetchDuration   prometheus.Histogram
	NewestBarAge    *prometheus.GaugeVec // labels: target
	TriggerArmed    *prometheus.GaugeVec // labels: target, side
	JournalWriteDur prometheus.Histogram
	PublishWriteDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divbot_cycles_total",
			Help: "Evaluation cycles completed per target",
		}, []string{"target"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divbot_signals_total",
			Help: "Signals fired per target and kind",
		}, []string{"target", "kind"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divbot_fetch_errors_total",
			Help: "Candle fetch failures per target",
		}, []string{"target"}),
		NotifyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divbot_notify_errors_total",
			Help: "Notification delivery failures per target",
		}, []string{"target"}),
		GatedSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divbot_gated_skips_total",
			Help: "Cycles skipped because the market was closed",
		}, []string{"target"}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "divbot_eval_duration_seconds",
			Help:    "Engine evaluation latency per cycle",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "divbot_fetch_duration_seconds",
			Help:    "Candle fetch latency per cycle",
			Buckets: prometheus.DefBuckets,
		}),
		NewestBarAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "divbot_newest_bar_age_seconds",
			Help: "Age of the newest closed bar at evaluation time",
		}, []string{"target"}),
		TriggerArmed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "divbot_trigger_armed",
			Help: "Whether a breakout trigger is armed (1) per target and side",
		}, []string{"target", "side"}),
		JournalWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "divbot_journal_write_duration_seconds",
			Help:    "SQLite journal write latency",
			Buckets: prometheus.DefBuckets,
		}),
		PublishWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "divbot_publish_write_duration_seconds",
			Help:    "Redis publish latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.SignalsTotal,
		m.FetchErrors,
		m.NotifyErrors,
		m.GatedSkips,
		m.EvalDuration,
		m.FetchDuration,
		m.NewestBarAge,
		m.TriggerArmed,
		m.JournalWriteDur,
		m.PublishWriteDur,
	)

	return m
}

// HealthStatus represents the bot's health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool
	SQLiteOK       bool
	LastCycleTime  time.Time

	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycleTime(t time.Time) {
	h.mu.Lock()
	h.LastCycleTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	if rdb == nil {
		return
	}
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(time.Since(start).Microseconds()) / 1000
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the journal database and records latency.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	if db == nil {
		return
	}
	start := time.Now()
	err := db.PingContext(ctx)
	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(time.Since(start).Microseconds()) / 1000
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker pings the stores on an interval until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				probe, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckRedis(probe, rdb)
				h.CheckSQLite(probe, db)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleTime.IsZero() {
		lastCycle = h.LastCycleTime.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCycleTime   string  `json:"last_cycle_time"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overall,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCycleTime:   lastCycle,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
