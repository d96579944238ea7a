// Package api serves the read-only HTTP status surface: health, scheduler
// status, cached quotes and Prometheus metrics.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"StockPulse/internal/calendar"
	"StockPulse/internal/logger"
	"StockPulse/internal/model"
	"StockPulse/internal/recorder"
	"StockPulse/internal/scheduler"
)

// SchedulerStatus is the part of the scheduler the status page reads.
type SchedulerStatus interface {
	Running() bool
	NextWake() time.Time
}

// Deps are the components the handlers read from.
type Deps struct {
	Config    scheduler.ConfigLoader
	Quotes    scheduler.QuoteSource
	Scheduler SchedulerStatus
	Recorder  recorder.Recorder
	Metrics   http.Handler
	Now       func() time.Time
	Logger    *slog.Logger
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Recorder == nil {
		d.Recorder = recorder.NewNoopRecorder()
	}
	h := &handler{d}

	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/healthz", h.health)
	router.GET("/status", h.status)
	router.GET("/quotes/:symbol", h.quote)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}
	return router
}

func (h *handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// GET /healthz
func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type cycleView struct {
	At         time.Time `json:"at"`
	Outcome    string    `json:"outcome"`
	Interval   int       `json:"interval_minutes"`
	Requested  int       `json:"requested"`
	Posted     int       `json:"posted"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// GET /status
func (h *handler) status(c *gin.Context) {
	cfg := h.Config.Load()
	now := h.Now()

	resp := gin.H{
		"channel_id":       cfg.ChannelID,
		"stocks":           cfg.Stocks,
		"interval":         model.IntervalName(cfg.IntervalMinutes),
		"interval_minutes": cfg.IntervalMinutes,
		"trading_hours":    calendar.IsTradingHours(now),
		"regular_hours":    calendar.IsRegularHours(now),
		"session":          calendar.ExtendedSession(now),
		"now":              now.In(calendar.Eastern).Format(time.RFC3339),
	}
	if h.Scheduler != nil {
		resp["running"] = h.Scheduler.Running()
		if next := h.Scheduler.NextWake(); !next.IsZero() {
			resp["next_wake"] = next.Format(time.RFC3339)
		}
	}

	events, err := h.Recorder.RecentCycles(10)
	if err != nil {
		h.Logger.Warn("load recent cycles", "error", err)
	}
	cycles := make([]cycleView, 0, len(events))
	for _, e := range events {
		cycles = append(cycles, cycleView{
			At:         e.At,
			Outcome:    e.Outcome,
			Interval:   e.IntervalMinutes,
			Requested:  e.Requested,
			Posted:     e.Posted,
			DurationMS: e.Duration.Milliseconds(),
			Error:      e.Error,
		})
	}
	resp["recent_cycles"] = cycles

	c.JSON(http.StatusOK, resp)
}

type quoteView struct {
	Symbol        string  `json:"symbol"`
	Price         string  `json:"price"`
	PreviousClose string  `json:"previous_close"`
	Change        string  `json:"change"`
	ChangePercent string  `json:"change_percent"`
	YearHigh      *string `json:"year_high,omitempty"`
	YearLow       *string `json:"year_low,omitempty"`
	Context52w    string  `json:"context_52w,omitempty"`
	ExtendedPrice *string `json:"extended_price,omitempty"`
	ExtendedLabel string  `json:"extended_label,omitempty"`
	MarketCap     *string `json:"market_cap,omitempty"`
	PERatio       *string `json:"pe_ratio,omitempty"`
}

// GET /quotes/:symbol
func (h *handler) quote(c *gin.Context) {
	sym := model.NormalizeSymbol(c.Param("symbol"))
	q, ok := h.Quotes.Quote(c.Request.Context(), sym)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not available", "symbol": sym})
		return
	}
	c.JSON(http.StatusOK, newQuoteView(q))
}
