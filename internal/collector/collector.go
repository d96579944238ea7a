package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"StockPulse/internal/calculator"
	"StockPulse/internal/model"
)

// Collector is the boundary between providers and the rest of the bot:
// every provider failure, including a panic, becomes a plain absence.
type Collector struct {
	Fetcher QuoteFetcher
	Logger  *slog.Logger
}

// NewCollector creates a new Collector. A nil logger discards output.
func NewCollector(fetcher QuoteFetcher, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{Fetcher: fetcher, Logger: logger}
}

// Fetch returns a quote for symbol, or false if the provider could not supply one.
// It has the shape of cache.FetchFunc.
func (c *Collector) Fetch(ctx context.Context, symbol string) (q model.Quote, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("quote fetch panicked", "source", c.Fetcher.Name(), "symbol", symbol, "panic", fmt.Sprint(r))
			q, ok = model.Quote{}, false
		}
	}()

	q, err := c.Fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		c.Logger.Warn("quote fetch failed", "source", c.Fetcher.Name(), "symbol", symbol, "error", err)
		return model.Quote{}, false
	}
	return q, true
}

// MockFetcher returns fixed quotes for development and testing.
// Symbols missing from Quotes get a synthetic quote unless Strict is set.
type MockFetcher struct {
	Quotes map[string]model.Quote
	Strict bool
	Err    error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchQuote(_ context.Context, symbol string) (model.Quote, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.Err != nil {
		return model.Quote{}, m.Err
	}
	if q, ok := m.Quotes[symbol]; ok {
		return q, nil
	}
	if m.Strict {
		return model.Quote{}, fmt.Errorf("mock: unknown symbol %s", symbol)
	}
	return generateMockQuote(symbol), nil
}

// Calls returns how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// generateMockQuote derives a stable price from the symbol's letters.
func generateMockQuote(symbol string) model.Quote {
	var seed int64
	for _, r := range symbol {
		seed = seed*31 + int64(r)
	}
	base := decimal.NewFromInt(50 + seed%450)
	prev := base.Mul(decimal.NewFromFloat(0.99)).Round(2)
	q := model.NewQuote(symbol, base, prev)
	q.YearHigh = decimal.NewNullDecimal(base.Mul(decimal.NewFromFloat(1.2)).Round(2))
	q.YearLow = decimal.NewNullDecimal(base.Mul(decimal.NewFromFloat(0.7)).Round(2))
	q.Context52w = calculator.Context52Week(q.Price, q.YearHigh, q.YearLow)
	return q
}
