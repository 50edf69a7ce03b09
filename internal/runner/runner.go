// Package runner drives one evaluation loop per watched target: fetch closed
// candles, run the divergence engine, and fan fired signals out to the
// journal, the stream, and the notifier.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/config"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/markethours"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/metrics"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/notification"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/scheduler"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/source"
)

// DefaultFetchCount is how many closed bars each cycle requests; comfortably
// above the engine's minimum window.
const DefaultFetchCount = 100

// Journal records fired signals durably.
type Journal interface {
	Append(ctx context.Context, ev divergence.Event) error
}

// Publisher streams fired signals and tracks the per-target cursor.
type Publisher interface {
	Publish(ctx context.Context, ev divergence.Event) error
	SetLastBarTime(ctx context.Context, targetKey string, barTime int64) error
	LastBarTime(ctx context.Context, targetKey string) (int64, error)
}

// Runner evaluates one target on candle-close boundaries.
type Runner struct {
	target   config.Target
	src      source.Source
	engine   *divergence.Engine
	journal  Journal   // optional
	pub      Publisher // optional
	notifier notification.Notifier
	met      *metrics.Metrics
	health   *metrics.HealthStatus // optional
	log      *slog.Logger
	loc      *time.Location
	currency string
	now      func() time.Time
	fetch    int

	// cursor is the newest bar time already published before this process
	// started; signals on bars at or before it are replays and stay quiet.
	cursor int64
}

// New wires a runner for one target. journal and pub may be nil; notifier
// must not be. fetchCount <= 0 falls back to DefaultFetchCount.
func New(target config.Target, src source.Source, params divergence.Params, fetchCount int,
	journal Journal, pub Publisher, notifier notification.Notifier,
	met *metrics.Metrics, log *slog.Logger) *Runner {

	loc, currency := time.UTC, "$"
	if target.Gated {
		loc, currency = markethours.IST, "₹"
	}
	if fetchCount <= 0 {
		fetchCount = DefaultFetchCount
	}
	return &Runner{
		target:   target,
		src:      src,
		engine:   divergence.NewEngine(target.Symbol, target.Timeframe, params),
		journal:  journal,
		pub:      pub,
		notifier: notifier,
		met:      met,
		log:      log.With("target", target.Key()),
		loc:      loc,
		currency: currency,
		now:      time.Now,
		fetch:    fetchCount,
	}
}

// SetHealth attaches a health tracker stamped after every completed cycle.
func (r *Runner) SetHealth(h *metrics.HealthStatus) {
	r.health = h
}

// Run executes cycles aligned to candle closes until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.pub != nil {
		cursor, err := r.pub.LastBarTime(ctx, r.target.Key())
		if err != nil {
			r.log.Warn("cursor load failed, replays may re-alert", "error", err)
		} else {
			r.cursor = cursor
		}
	}

	tick, err := scheduler.NewTicker(r.target.Timeframe)
	if err != nil {
		return err
	}

	r.log.Info("runner started", "min_bars", r.engine.Params().MinBars())
	// One immediate cycle warms the trigger state from history.
	r.Cycle(ctx)

	for {
		if err := tick.Wait(ctx); err != nil {
			r.log.Info("runner stopped")
			return nil
		}
		r.Cycle(ctx)
	}
}

// Cycle performs one fetch-evaluate-dispatch pass.
func (r *Runner) Cycle(ctx context.Context) {
	key := r.target.Key()

	if r.target.Gated && !markethours.IsMarketOpen(r.now()) {
		r.met.GatedSkips.WithLabelValues(key).Inc()
		r.log.Debug("market closed, skipping", "status", markethours.StatusString(r.now()))
		return
	}

	start := r.now()
	bars, err := r.src.Fetch(ctx, r.fetch)
	r.met.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.met.FetchErrors.WithLabelValues(key).Inc()
		r.log.Error("fetch failed", "error", err)
		return
	}
	if err := model.ValidateBars(bars); err != nil {
		r.met.FetchErrors.WithLabelValues(key).Inc()
		r.log.Error("bad candle batch", "error", err)
		return
	}
	if len(bars) > 0 {
		r.met.NewestBarAge.WithLabelValues(key).Set(r.now().Sub(bars[len(bars)-1].TS()).Seconds())
	}

	evalStart := time.Now()
	events := r.engine.Evaluate(bars)
	r.met.EvalDuration.Observe(time.Since(evalStart).Seconds())
	r.met.CyclesTotal.WithLabelValues(key).Inc()
	r.observeTrigger(key)

	for _, ev := range events {
		r.dispatch(ctx, ev)
	}

	if r.pub != nil && len(bars) > 0 {
		newest := bars[len(bars)-1].Time
		if err := r.pub.SetLastBarTime(ctx, key, newest); err != nil {
			r.log.Warn("cursor save failed", "error", err)
		}
	}

	if r.health != nil {
		r.health.SetLastCycleTime(r.now())
	}
}

func (r *Runner) dispatch(ctx context.Context, ev divergence.Event) {
	key := r.target.Key()
	replay := ev.BarTime <= r.cursor

	r.log.Info("signal fired",
		"kind", string(ev.Kind), "bar_time", ev.BarTime,
		"close", ev.Close, "rsi", ev.RSI, "replay", replay)

	if r.journal != nil {
		start := time.Now()
		if err := r.journal.Append(ctx, ev); err != nil {
			r.log.Error("journal append failed", "error", err)
		}
		r.met.JournalWriteDur.Observe(time.Since(start).Seconds())
	}

	if replay {
		return
	}
	r.met.SignalsTotal.WithLabelValues(key, string(ev.Kind)).Inc()

	if r.pub != nil {
		start := time.Now()
		if err := r.pub.Publish(ctx, ev); err != nil {
			r.log.Error("publish failed", "error", err)
		}
		r.met.PublishWriteDur.Observe(time.Since(start).Seconds())
	}

	alert := notification.FormatAlert(ev, r.currency, r.loc)
	if err := r.notifier.Send(ctx, alert); err != nil {
		r.met.NotifyErrors.WithLabelValues(key).Inc()
		r.log.Error("notify failed", "error", err)
	}
}

func (r *Runner) observeTrigger(key string) {
	bull, bear := 0.0, 0.0
	tr := r.engine.Trigger()
	if tr.BullTrigger().Valid {
		bull = 1
	}
	if tr.BearTrigger().Valid {
		bear = 1
	}
	r.met.TriggerArmed.WithLabelValues(key, "bull").Set(bull)
	r.met.TriggerArmed.WithLabelValues(key, "bear").Set(bear)
}
