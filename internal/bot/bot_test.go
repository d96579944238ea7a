package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPulse/internal/cache"
	"StockPulse/internal/calendar"
	"StockPulse/internal/collector"
	"StockPulse/internal/model"
	"StockPulse/internal/notifier"
	"StockPulse/internal/settings"
)

type countingRestarter struct{ starts atomic.Int32 }

func (r *countingRestarter) Start() { r.starts.Add(1) }

type fixture struct {
	bot     *Bot
	store   *settings.Store
	fetcher *collector.MockFetcher
	sched   *countingRestarter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fetcher := &collector.MockFetcher{Strict: true, Quotes: map[string]model.Quote{
		"AAPL": model.NewQuote("AAPL", decimal.NewFromInt(200), decimal.NewFromInt(190)),
		"MSFT": model.NewQuote("MSFT", decimal.NewFromInt(400), decimal.NewFromInt(410)),
	}}
	col := collector.NewCollector(fetcher, nil)
	store := settings.NewStore(filepath.Join(t.TempDir(), "stocks.json"), nil)
	sched := &countingRestarter{}
	now := func() time.Time { return time.Date(2025, 1, 15, 10, 17, 0, 0, calendar.Eastern) }

	b := New(store, &cache.Provider{Cache: cache.New(cache.DefaultTTL), Fetch: col.Fetch}, sched, now, nil)
	return &fixture{bot: b, store: store, fetcher: fetcher, sched: sched}
}

func (f *fixture) send(text string) []string {
	var replies []string
	msg := notifier.Message{ChatID: -100, ChatTitle: "Desk", Text: text}
	f.bot.Handle(context.Background(), msg, func(s string) { replies = append(replies, s) })
	return replies
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		name string
		args []string
		ok   bool
	}{
		{"/ping", "ping", []string{}, true},
		{"!addstock aapl", "addstock", []string{"aapl"}, true},
		{"/Compare@StockPulseBot AAPL  MSFT", "compare", []string{"AAPL", "MSFT"}, true},
		{"hello there", "", nil, false},
		{"/", "", nil, false},
		{"/@bot", "", nil, false},
	}
	for _, tt := range tests {
		name, args, ok := ParseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		if tt.ok {
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		}
	}
}

func TestHandle_IgnoresUnknownAndPlainText(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.send("/chart AAPL"))
	assert.Empty(t, f.send("just chatting"))
}

func TestPingAndHelp(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"Pong!"}, f.send("!ping"))

	replies := f.send("/help")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], notifier.HelpFooter)
}

func TestSetChannel(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"✅ Stock updates will be posted to <b>Desk</b>"}, f.send("/setchannel"))

	cfg := f.store.Load()
	require.True(t, cfg.HasChannel())
	assert.Equal(t, int64(-100), *cfg.ChannelID)
}

func TestAddStock(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.send("/addstock")[0], "Please provide a ticker symbol")

	replies := f.send("/addstock aapl")
	assert.Equal(t, []string{
		"🔍 Checking <b>AAPL</b>...",
		"✅ Added <b>AAPL</b> to the watch list. Current price: $200.00",
	}, replies)

	assert.Equal(t, []string{"⚠️ <b>AAPL</b> is already in the watch list."}, f.send("/addstock AAPL"))

	replies = f.send("/addstock nope")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1], "Could not find stock data for <b>NOPE</b>")

	assert.Equal(t, []string{"AAPL"}, f.store.Load().Stocks)
}

func TestRemoveStockAndList(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.send("/stocks")[0], "The watch list is empty")

	_, err := f.store.AddStock("AAPL")
	require.NoError(t, err)
	_, err = f.store.AddStock("MSFT")
	require.NoError(t, err)

	assert.Equal(t, []string{"📋 <b>Watch List:</b> <b>AAPL</b>, <b>MSFT</b>"}, f.send("/stocks"))
	assert.Equal(t, []string{"⚠️ <b>TSLA</b> is not in the watch list."}, f.send("/removestock tsla"))
	assert.Equal(t, []string{"✅ Removed <b>AAPL</b> from the watch list."}, f.send("/removestock aapl"))
	assert.Equal(t, []string{"MSFT"}, f.store.Load().Stocks)
}

func TestCheck(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.send("/check")[0], "No stocks to check")

	replies := f.send("/check msft")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1], "Stock Update (10:17 AM ET)")
	assert.Contains(t, replies[1], "🔴 <b>MSFT</b>")

	replies = f.send("/check zzz")
	require.Len(t, replies, 2)
	assert.Equal(t, "❌ Could not find stock data for <b>ZZZ</b>.", replies[1])

	_, err := f.store.AddStock("AAPL")
	require.NoError(t, err)
	_, err = f.store.AddStock("ZZZ")
	require.NoError(t, err)
	replies = f.send("/check")
	require.Len(t, replies, 2)
	assert.Equal(t, "🔍 Fetching data for 2 stock(s)...", replies[0])
	assert.Contains(t, replies[1], "<b>AAPL</b>")
	assert.NotContains(t, replies[1], "ZZZ")
}

func TestCheck_UsesCache(t *testing.T) {
	f := newFixture(t)
	f.send("/check aapl")
	f.send("/check AAPL")
	assert.Equal(t, 1, f.fetcher.Calls("AAPL"))
}

func TestSetInterval(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.send("/setinterval")[0], "<code>15m</code>, <code>30m</code>")
	assert.Contains(t, f.send("/setinterval 45m")[0], "Please provide a valid interval")
	assert.Zero(t, f.sched.starts.Load())

	replies := f.send("/setinterval 30M")
	assert.Equal(t, []string{"✅ Update interval changed to <b>30m</b>.\nNext update at 10:30 AM ET."}, replies)
	assert.Equal(t, 30, f.store.Load().IntervalMinutes)
	assert.Equal(t, int32(1), f.sched.starts.Load())
}

func TestCompare(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.send("/compare AAPL")[0], "at least 2 tickers")
	assert.Contains(t, f.send("/compare A B C D E F")[0], "Maximum 5 stocks")

	replies := f.send("/compare aapl msft nope")
	require.Len(t, replies, 2)
	assert.Equal(t, "🔍 Comparing 3 stocks...", replies[0])
	assert.True(t, strings.HasPrefix(replies[1], "📊 <b>Stock Comparison</b>"))
	assert.Contains(t, replies[1], "<b>AAPL</b>: $200.00 | <b>MSFT</b>: $400.00")

	replies = f.send("/compare x y")
	require.Len(t, replies, 2)
	assert.Equal(t, "❌ Could not fetch data for any of the provided tickers.", replies[1])
}
