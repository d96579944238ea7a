package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"StockPulse/internal/calendar"
	"StockPulse/internal/model"
)

// Status is how a cycle ended.
type Status string

const (
	StatusPosted              Status = "posted"
	StatusSkippedUnconfigured Status = "skipped_unconfigured"
	StatusSkippedClosed       Status = "skipped_closed"
	StatusSkippedChannel      Status = "skipped_channel"
	StatusCancelled           Status = "cancelled"
	StatusFailed              Status = "failed"
)

// Outcome summarizes one update cycle.
type Outcome struct {
	Status    Status
	Requested int
	Fetched   int
}

// ConfigLoader supplies the persisted schedule configuration.
type ConfigLoader interface {
	Load() model.ScheduleConfig
}

// QuoteSource is satisfied by cache.Provider.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (model.Quote, bool)
}

// Runner executes one cycle.
type Runner interface {
	Run(ctx context.Context) (Outcome, error)
}

// DefaultConcurrency bounds parallel quote fetches per cycle.
const DefaultConcurrency = 4

// Updater runs a single scheduled update: load config, gate on market hours,
// fetch the watch-list and hand the result to the sink.
type Updater struct {
	Config      ConfigLoader
	Quotes      QuoteSource
	Sink        Sink
	Now         func() time.Time
	Concurrency int
	Logger      *slog.Logger
}

// NewUpdater creates an Updater with default concurrency.
func NewUpdater(cfg ConfigLoader, quotes QuoteSource, sink Sink, now func() time.Time, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if now == nil {
		now = time.Now
	}
	return &Updater{
		Config:      cfg,
		Quotes:      quotes,
		Sink:        sink,
		Now:         now,
		Concurrency: DefaultConcurrency,
		Logger:      logger,
	}
}

// Run executes the cycle. Skips are reported through the Outcome, not as errors.
// Once quotes are fetched the send is not abandoned on cancellation.
func (u *Updater) Run(ctx context.Context) (Outcome, error) {
	cfg := u.Config.Load()
	out := Outcome{Requested: len(cfg.Stocks)}

	if !cfg.HasChannel() || len(cfg.Stocks) == 0 {
		u.Logger.Debug("update skipped, channel or stocks not configured")
		out.Status = StatusSkippedUnconfigured
		return out, nil
	}

	now := u.Now()
	if !calendar.IsTradingHours(now) {
		u.Logger.Debug("update skipped, outside trading hours", "now", now.In(calendar.Eastern).Format(time.DateTime))
		out.Status = StatusSkippedClosed
		return out, nil
	}

	ch, ok := u.Sink.ResolveChannel(ctx, *cfg.ChannelID)
	if !ok {
		u.Logger.Debug("update skipped, channel not found", "channel_id", *cfg.ChannelID)
		out.Status = StatusSkippedChannel
		return out, nil
	}

	quotes := FetchAll(ctx, u.Quotes, cfg.Stocks, u.Concurrency)
	out.Fetched = len(quotes)

	if err := ctx.Err(); err != nil {
		out.Status = StatusCancelled
		return out, nil
	}

	upd := model.Update{At: now, Requested: len(cfg.Stocks), Quotes: quotes}
	if err := u.Sink.Send(context.WithoutCancel(ctx), ch, upd); err != nil {
		out.Status = StatusFailed
		return out, fmt.Errorf("send update: %w", err)
	}
	out.Status = StatusPosted
	return out, nil
}

// FetchAll looks up symbols concurrently and returns the quotes that were found,
// in the order of symbols.
func FetchAll(ctx context.Context, src QuoteSource, symbols []string, limit int) []model.Quote {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	slots := make([]*model.Quote, len(symbols))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, sym := range symbols {
		g.Go(func() error {
			if q, ok := src.Quote(ctx, sym); ok {
				slots[i] = &q
			}
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]model.Quote, 0, len(symbols))
	for _, q := range slots {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}
