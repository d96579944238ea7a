// Package bot implements the chat commands that manage the watch-list and
// schedule, and answer ad hoc quote requests.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"

	"StockPulse/internal/model"
	"StockPulse/internal/notifier"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/settings"
)

// MaxCompare is the most tickers /compare accepts.
const MaxCompare = 5

// Store is the settings the commands edit.
type Store interface {
	Load() model.ScheduleConfig
	SetChannel(id int64) error
	AddStock(symbol string) (string, error)
	RemoveStock(symbol string) (string, error)
	SetInterval(minutes int) error
}

// Restarter restarts the update loop after an interval change.
type Restarter interface {
	Start()
}

// Bot dispatches chat commands.
type Bot struct {
	store     Store
	quotes    scheduler.QuoteSource
	scheduler Restarter
	now       func() time.Time
	logger    *slog.Logger
	commands  map[string]func(ctx context.Context, msg notifier.Message, args []string, reply func(string))
}

// New creates a Bot. A nil now uses time.Now; a nil logger discards output.
func New(store Store, quotes scheduler.QuoteSource, sched Restarter, now func() time.Time, logger *slog.Logger) *Bot {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &Bot{store: store, quotes: quotes, scheduler: sched, now: now, logger: logger}
	b.commands = map[string]func(context.Context, notifier.Message, []string, func(string)){
		"ping":        b.ping,
		"help":        b.help,
		"start":       b.help,
		"setchannel":  b.setChannel,
		"addstock":    b.addStock,
		"removestock": b.removeStock,
		"stocks":      b.stocks,
		"check":       b.check,
		"setinterval": b.setInterval,
		"compare":     b.compare,
	}
	return b
}

// ParseCommand splits "/name@bot arg1 arg2" or "!name arg1" into a lower-case
// name and its arguments. ok is false for text that is not a command.
func ParseCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || (text[0] != '/' && text[0] != '!') {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name, _, _ = strings.Cut(fields[0], "@")
	return strings.ToLower(name), fields[1:], name != ""
}

// Handle is a notifier.CommandHandler. Unknown commands and plain text are ignored.
func (b *Bot) Handle(ctx context.Context, msg notifier.Message, reply func(string)) {
	name, args, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	cmd, ok := b.commands[name]
	if !ok {
		return
	}
	b.logger.Info("command received", "command", name, "chat_id", msg.ChatID)
	cmd(ctx, msg, args, reply)
}

func (b *Bot) ping(_ context.Context, _ notifier.Message, _ []string, reply func(string)) {
	reply("Pong!")
}

func (b *Bot) help(_ context.Context, _ notifier.Message, _ []string, reply func(string)) {
	reply(notifier.FormatHelp())
}

func (b *Bot) setChannel(_ context.Context, msg notifier.Message, _ []string, reply func(string)) {
	if err := b.store.SetChannel(msg.ChatID); err != nil {
		b.logger.Error("save channel", "error", err)
		reply("❌ Could not save settings.")
		return
	}
	reply(fmt.Sprintf("✅ Stock updates will be posted to <b>%s</b>", html.EscapeString(msg.ChatTitle)))
}

func (b *Bot) addStock(ctx context.Context, _ notifier.Message, args []string, reply func(string)) {
	if len(args) == 0 {
		reply("❌ Please provide a ticker symbol. Example: <code>/addstock AAPL</code>")
		return
	}
	sym := model.NormalizeSymbol(args[0])
	if b.store.Load().Watching(sym) {
		reply(fmt.Sprintf("⚠️ %s is already in the watch list.", bold(sym)))
		return
	}

	reply(fmt.Sprintf("🔍 Checking %s...", bold(sym)))
	q, ok := b.quotes.Quote(ctx, sym)
	if !ok {
		reply(fmt.Sprintf("❌ Could not find stock data for %s. Please check the ticker symbol.", bold(sym)))
		return
	}

	if _, err := b.store.AddStock(sym); err != nil {
		if errors.Is(err, settings.ErrDuplicateStock) {
			reply(fmt.Sprintf("⚠️ %s is already in the watch list.", bold(sym)))
			return
		}
		b.logger.Error("save watch-list", "symbol", sym, "error", err)
		reply("❌ Could not save settings.")
		return
	}
	reply(fmt.Sprintf("✅ Added %s to the watch list. Current price: $%s", bold(sym), q.Price.StringFixed(2)))
}

func (b *Bot) removeStock(_ context.Context, _ notifier.Message, args []string, reply func(string)) {
	if len(args) == 0 {
		reply("❌ Please provide a ticker symbol. Example: <code>/removestock AAPL</code>")
		return
	}
	sym, err := b.store.RemoveStock(args[0])
	switch {
	case errors.Is(err, settings.ErrUnknownStock):
		reply(fmt.Sprintf("⚠️ %s is not in the watch list.", bold(sym)))
	case err != nil:
		b.logger.Error("save watch-list", "symbol", sym, "error", err)
		reply("❌ Could not save settings.")
	default:
		reply(fmt.Sprintf("✅ Removed %s from the watch list.", bold(sym)))
	}
}

func (b *Bot) stocks(_ context.Context, _ notifier.Message, _ []string, reply func(string)) {
	list := b.store.Load().Stocks
	if len(list) == 0 {
		reply("📋 The watch list is empty. Use <code>/addstock TICKER</code> to add stocks.")
		return
	}
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = bold(s)
	}
	reply("📋 <b>Watch List:</b> " + strings.Join(names, ", "))
}

func (b *Bot) check(ctx context.Context, _ notifier.Message, args []string, reply func(string)) {
	if len(args) > 0 {
		sym := model.NormalizeSymbol(args[0])
		reply(fmt.Sprintf("🔍 Fetching data for %s...", bold(sym)))
		q, ok := b.quotes.Quote(ctx, sym)
		if !ok {
			reply(fmt.Sprintf("❌ Could not find stock data for %s.", bold(sym)))
			return
		}
		reply(notifier.FormatUpdate(model.Update{At: b.now(), Requested: 1, Quotes: []model.Quote{q}}))
		return
	}

	list := b.store.Load().Stocks
	if len(list) == 0 {
		reply("📋 No stocks to check. Use <code>/addstock TICKER</code> to add stocks first.")
		return
	}
	reply(fmt.Sprintf("🔍 Fetching data for %d stock(s)...", len(list)))
	quotes := scheduler.FetchAll(ctx, b.quotes, list, scheduler.DefaultConcurrency)
	reply(notifier.FormatUpdate(model.Update{At: b.now(), Requested: len(list), Quotes: quotes}))
}

func (b *Bot) setInterval(_ context.Context, _ notifier.Message, args []string, reply func(string)) {
	var minutes int
	err := model.ErrInvalidInterval
	if len(args) > 0 {
		minutes, err = model.ParseInterval(args[0])
	}
	if err != nil {
		names := make([]string, len(model.IntervalPresets))
		for i, p := range model.IntervalPresets {
			names[i] = "<code>" + p.Name + "</code>"
		}
		reply("❌ Please provide a valid interval: " + strings.Join(names, ", "))
		return
	}

	if err := b.store.SetInterval(minutes); err != nil {
		b.logger.Error("save interval", "minutes", minutes, "error", err)
		reply("❌ Could not save settings.")
		return
	}
	b.scheduler.Start()

	next := scheduler.NextAlignedTime(minutes, b.now())
	reply(fmt.Sprintf("✅ Update interval changed to <b>%s</b>.\nNext update at %s.",
		model.IntervalName(minutes), notifier.FormatTime(next)))
}

func (b *Bot) compare(ctx context.Context, _ notifier.Message, args []string, reply func(string)) {
	if len(args) < 2 {
		reply("❌ Please provide at least 2 tickers. Example: <code>/compare AAPL MSFT GOOGL</code>")
		return
	}
	if len(args) > MaxCompare {
		reply(fmt.Sprintf("❌ Maximum %d stocks can be compared at once.", MaxCompare))
		return
	}

	symbols := make([]string, len(args))
	for i, a := range args {
		symbols[i] = model.NormalizeSymbol(a)
	}
	reply(fmt.Sprintf("🔍 Comparing %d stocks...", len(symbols)))

	quotes := scheduler.FetchAll(ctx, b.quotes, symbols, MaxCompare)
	if len(quotes) == 0 {
		reply("❌ Could not fetch data for any of the provided tickers.")
		return
	}
	reply(notifier.FormatComparison(quotes))
}

func bold(s string) string { return "<b>" + html.EscapeString(s) + "</b>" }
