package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StockPulse/internal/calendar"
	"StockPulse/internal/model"
)

// Message texts shared by the scheduler and chat commands.
const (
	NoDataText      = "No stock data available."
	NoValidDataText = "No valid stock data."
	HelpFooter      = "ℹ️ Auto-updates run Mon-Fri 4AM-8PM ET only"
)

// FormatTime renders t the way update titles do, e.g. "03:04 PM ET".
func FormatTime(t time.Time) string {
	return t.In(calendar.Eastern).Format("03:04 PM") + " ET"
}

// FormatUpdate renders an update as a Telegram HTML message.
func FormatUpdate(upd model.Update) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Stock Update (%s)</b>\n\n", FormatTime(upd.At)))

	switch {
	case upd.Requested == 0:
		b.WriteString(NoDataText)
	case len(upd.Quotes) == 0:
		b.WriteString(NoValidDataText)
	default:
		lines := make([]string, 0, len(upd.Quotes))
		for _, q := range upd.Quotes {
			lines = append(lines, FormatQuote(q))
		}
		b.WriteString(strings.Join(lines, "\n\n"))
	}
	return b.String()
}

// FormatQuote renders one quote as two lines: price, then change and 52w context.
func FormatQuote(q model.Quote) string {
	emoji := "🟢"
	if !q.Up() {
		emoji = "🔴"
	}

	price := dollars(q.Price)
	if q.HasExtended() {
		price += fmt.Sprintf("  (%s: %s)", q.ExtendedLabel, dollars(q.ExtendedPrice.Decimal))
	}

	change := fmt.Sprintf("%s (%s)", signedDollars(q.Change), signedPercent(q.ChangePercent))
	if q.Context52w != "" {
		change += " · " + q.Context52w
	}
	return fmt.Sprintf("%s <b>%s</b> — %s\n　　%s", emoji, html.EscapeString(q.Symbol), price, change)
}

// FormatComparison renders the side-by-side view used by /compare.
func FormatComparison(quotes []model.Quote) string {
	rows := []struct {
		title string
		cell  func(q model.Quote) string
	}{
		{"💰 Price", func(q model.Quote) string {
			return fmt.Sprintf("<b>%s</b>: %s", html.EscapeString(q.Symbol), dollars(q.Price))
		}},
		{"📈 Daily Change", func(q model.Quote) string {
			emoji := "🟢"
			if q.ChangePercent.IsNegative() {
				emoji = "🔴"
			}
			return fmt.Sprintf("%s <b>%s</b>: %s", emoji, html.EscapeString(q.Symbol), signedPercent(q.ChangePercent))
		}},
		{"📅 52-Week", func(q model.Quote) string {
			return fmt.Sprintf("<b>%s</b>: %s", html.EscapeString(q.Symbol), orNA(q.Context52w))
		}},
		{"📉 P/E Ratio", func(q model.Quote) string {
			pe := "N/A"
			if q.PERatio.Valid && !q.PERatio.Decimal.IsZero() {
				pe = q.PERatio.Decimal.StringFixed(1)
			}
			return fmt.Sprintf("<b>%s</b>: %s", html.EscapeString(q.Symbol), pe)
		}},
		{"🏢 Market Cap", func(q model.Quote) string {
			return fmt.Sprintf("<b>%s</b>: %s", html.EscapeString(q.Symbol), FormatMarketCap(q.MarketCap))
		}},
	}

	var b strings.Builder
	b.WriteString("📊 <b>Stock Comparison</b>\n")
	for _, row := range rows {
		cells := make([]string, 0, len(quotes))
		for _, q := range quotes {
			cells = append(cells, row.cell(q))
		}
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n%s\n", row.title, strings.Join(cells, " | ")))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
)

// FormatMarketCap abbreviates a market cap to T/B/M, or "N/A" when unknown.
func FormatMarketCap(mc decimal.NullDecimal) string {
	if !mc.Valid {
		return "N/A"
	}
	v := mc.Decimal
	switch {
	case v.GreaterThanOrEqual(trillion):
		return "$" + v.Div(trillion).StringFixed(2) + "T"
	case v.GreaterThanOrEqual(billion):
		return "$" + v.Div(billion).StringFixed(2) + "B"
	case v.GreaterThanOrEqual(million):
		return "$" + v.Div(million).StringFixed(2) + "M"
	default:
		return "$" + v.StringFixed(0)
	}
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	sections := []struct {
		title    string
		commands [][2]string
	}{
		{"📋 Basic Commands", [][2]string{
			{"/help", "Show this help message"},
			{"/ping", "Test if the bot is responsive"},
			{"/setchannel", "Set this chat for stock updates"},
		}},
		{"📈 Watch List", [][2]string{
			{"/addstock &lt;TICKER&gt;", "Add a stock to watch list"},
			{"/removestock &lt;TICKER&gt;", "Remove a stock from watch list"},
			{"/stocks", "List all watched stocks"},
			{"/check [TICKER]", "Check current prices"},
		}},
		{"🔍 Analysis", [][2]string{
			{"/compare &lt;T1&gt; &lt;T2&gt;...", "Compare 2-5 stocks side-by-side"},
		}},
		{"⚙️ Settings", [][2]string{
			{"/setinterval &lt;TIME&gt;", "Set update frequency (" + presetList() + ")"},
		}},
	}

	var b strings.Builder
	b.WriteString("📊 <b>Stock Bot Commands</b>\n")
	for _, s := range sections {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", s.title))
		for _, c := range s.commands {
			b.WriteString(fmt.Sprintf("<code>%s</code> %s\n", c[0], c[1]))
		}
	}
	b.WriteString("\n<i>" + HelpFooter + "</i>")
	return b.String()
}

func presetList() string {
	names := make([]string, 0, len(model.IntervalPresets))
	for _, p := range model.IntervalPresets {
		names = append(names, p.Name)
	}
	return strings.Join(names, "/")
}

func dollars(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

func signedDollars(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "+$" + d.StringFixed(2)
}

func signedPercent(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2) + "%"
	}
	return "+" + d.StringFixed(2) + "%"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
