package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/config"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/logger"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/metrics"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/notification"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/runner"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/source"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/source/angel"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/source/delta"
	redisstore "github.com/ronadasakalesha/RSI-Divergence-Bot/internal/store/redis"
	sqlitestore "github.com/ronadasakalesha/RSI-Divergence-Bot/internal/store/sqlite"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/pkg/smartconnect"
)

func main() {
	cfg := config.Load()
	log := logger.Init("divbot", logger.ParseLevel(cfg.LogLevel))

	targets, err := cfg.ParseTargets()
	if err != nil {
		log.Error("bad WATCH_TARGETS", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(targets); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log.Info("starting", "targets", cfg.WatchTargets, "dry_run", cfg.DryRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Stores (both optional) ----
	var journal *sqlitestore.Journal
	if cfg.SQLitePath != "" {
		journal, err = sqlitestore.New(sqlitestore.JournalConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Error("sqlite journal open failed", "error", err)
			os.Exit(1)
		}
		defer journal.Close()
		health.SetSQLiteOK(true)
		log.Info("signal journal open", "path", cfg.SQLitePath)
	}

	var publisher *redisstore.Publisher
	if cfg.RedisAddr != "" {
		publisher, err = redisstore.New(redisstore.PublisherConfig{
			Addr: cfg.RedisAddr, Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		health.SetRedisConnected(true)
		log.Info("redis connected", "addr", cfg.RedisAddr)
	}

	// Unconfigured stores are healthy by definition; the prober skips nils.
	if journal == nil {
		health.SetSQLiteOK(true)
	}
	if publisher == nil {
		health.SetRedisConnected(true)
	}
	health.StartLivenessChecker(ctx, redisClient(publisher), journalDB(journal), 30*time.Second)

	// ---- Notifier ----
	var notifier notification.Notifier
	if cfg.DryRun {
		notifier = notification.NewLogNotifier()
	} else {
		notifier = notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	}
	if cfg.WebhookURL != "" {
		notifier = notification.NewMultiNotifier(notifier, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Info("webhook notifications enabled", "url", cfg.WebhookURL)
	}

	// ---- Angel One session (only when an angel target is watched) ----
	var angelClient *smartconnect.Client
	if hasAngelTarget(targets) {
		angelClient = smartconnect.New(smartconnect.Config{
			APIKey:     cfg.AngelAPIKey,
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
		})
		if err := angelClient.GenerateSession(ctx); err != nil {
			log.Error("angel login failed", "error", err)
			os.Exit(1)
		}
		angelClient.SessionExpiryHook = func() {
			log.Warn("angel session expired, source will re-login and retry")
		}
		defer angelClient.Logout(context.Background())
		log.Info("angel session established")
	}

	// ---- Runners, one per target ----
	params := divergence.Params{
		RSILength:  cfg.RSILength,
		Lookback:   cfg.Lookback,
		BuyRSIMin:  cfg.BuyRSIMin,
		SellRSIMax: cfg.SellRSIMax,
		MarginBars: cfg.MarginBars,
	}

	var wg sync.WaitGroup
	for _, target := range targets {
		src, err := buildSource(ctx, cfg, target, angelClient, log)
		if err != nil {
			log.Error("source setup failed", "target", target.Key(), "error", err)
			os.Exit(1)
		}

		r := runner.New(target, src, params, cfg.FetchCount,
			asJournal(journal), asPublisher(publisher), notifier, prom, log)
		r.SetHealth(health)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				log.Error("runner exited", "error", err)
			}
		}()
	}

	// ---- Graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	log.Info("stopped")
}

func hasAngelTarget(targets []config.Target) bool {
	for _, t := range targets {
		if t.Source == "angel" {
			return true
		}
	}
	return false
}

func buildSource(ctx context.Context, cfg *config.Config, target config.Target, angelClient *smartconnect.Client, log *slog.Logger) (source.Source, error) {
	switch target.Source {
	case "delta":
		return delta.NewRESTSource(cfg.DeltaBaseURL, target.Symbol, target.Timeframe)
	case "delta-ws":
		ws, err := delta.NewWSSource(target.Symbol, target.Timeframe, log)
		if err != nil {
			return nil, err
		}
		// Backfill so the engine has history before the first streamed close.
		rest, err := delta.NewRESTSource(cfg.DeltaBaseURL, target.Symbol, target.Timeframe)
		if err != nil {
			return nil, err
		}
		if bars, err := rest.Fetch(ctx, cfg.FetchCount); err != nil {
			log.Warn("stream backfill failed, priming from live closes", "target", target.Key(), "error", err)
		} else {
			ws.Prime(bars)
		}
		ws.Start(ctx)
		return ws, nil
	case "angel":
		if angelClient == nil {
			return nil, errors.New("angel client not initialized")
		}
		return angel.New(angelClient, target.Symbol, target.Token, target.Timeframe)
	default:
		return nil, errors.New("unknown source " + target.Source)
	}
}

// Typed-nil guards: a nil concrete pointer must not reach the runner's
// optional interfaces.
func asJournal(j *sqlitestore.Journal) runner.Journal {
	if j == nil {
		return nil
	}
	return j
}

func asPublisher(p *redisstore.Publisher) runner.Publisher {
	if p == nil {
		return nil
	}
	return p
}

func redisClient(p *redisstore.Publisher) *goredis.Client {
	if p == nil {
		return nil
	}
	return p.Client()
}

func journalDB(j *sqlitestore.Journal) *sql.DB {
	if j == nil {
		return nil
	}
	return j.DB()
}
