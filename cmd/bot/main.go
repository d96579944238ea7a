package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"StockPulse/internal/api"
	"StockPulse/internal/bot"
	"StockPulse/internal/cache"
	"StockPulse/internal/collector"
	"StockPulse/internal/config"
	"StockPulse/internal/logger"
	"StockPulse/internal/metrics"
	"StockPulse/internal/notifier"
	"StockPulse/internal/recorder"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/settings"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "error", err)
	}

	// Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config validation", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Tracing: cfg.Log.Tracing})
	log.Info("stockpulse starting", "version", version)

	tracing, err := logger.NewTracing(cfg.Log.Tracing, version)
	if err != nil {
		log.Error("init tracing", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := settings.NewStore(cfg.Schedule.StateFile, log)
	m := metrics.New()

	// Quote source: fetcher -> collector -> cache
	var fetcher collector.QuoteFetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Info("data source", "name", fetcher.Name())

	col := collector.NewCollector(fetcher, log)
	quotes := &cache.Provider{
		Cache: cache.New(cfg.CacheTTL(), cache.WithLookupHook(m.ObserveLookup)),
		Fetch: col.Fetch,
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Proxy, log)
	tn.BaseURL = cfg.Telegram.BaseURL
	tn.Retries = cfg.Telegram.SendRetries

	rec := newRecorder(cfg.Database.SQLitePath, log)
	defer rec.Close()

	updater := scheduler.NewUpdater(store, quotes, tn, time.Now, log)
	sched := scheduler.NewScheduler(ctx, store, updater, scheduler.SystemClock{},
		scheduler.WithCooldown(cfg.Cooldown()),
		scheduler.WithRecorder(rec),
		scheduler.WithObserver(m),
		scheduler.WithTracer(tracing.Tracer("stockpulse/scheduler")),
		scheduler.WithLogger(log),
	)
	sched.Start()

	b := bot.New(store, quotes, sched, time.Now, log)
	go tn.StartPolling(ctx, b.Handle)
	log.Info("telegram polling started")

	// Housekeeping
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Database.PruneCron, func() {
		n, err := rec.Prune(time.Now().Add(-cfg.Retention()))
		if err != nil {
			log.Warn("prune cycle records", "error", err)
			return
		}
		log.Info("pruned cycle records", "deleted", n)
	}); err != nil {
		log.Error("register prune job", "error", err)
		os.Exit(1)
	}
	c.Start()

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewRouter(api.Deps{
			Config:    store,
			Quotes:    quotes,
			Scheduler: sched,
			Recorder:  rec,
			Metrics:   m.Handler(),
			Logger:    log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http api listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http api stopped", "error", err)
		}
	}()

	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, posting an update now")
		go sched.RunOnce(ctx)
	}

	log.Info("stockpulse is running, press Ctrl+C to stop")
	<-ctx.Done()

	log.Info("shutdown signal received, stopping")
	sched.Stop()
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", "error", err)
	}
	log.Info("stockpulse stopped")
}

func newRecorder(path string, log *slog.Logger) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path, log)
	if err != nil {
		log.Warn("init sqlite recorder failed, using noop", "error", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}
