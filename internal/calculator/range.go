package calculator

import (
	"github.com/shopspring/decimal"

	"StockPulse/internal/model"
)

// TradingDaysPerYear is the window YearRange looks back over.
const TradingDaysPerYear = 252

// YearRange returns the highest high and lowest low of the last
// TradingDaysPerYear bars. Both results are null when bars is empty.
func YearRange(bars []model.DailyBar) (high, low decimal.NullDecimal) {
	if len(bars) > TradingDaysPerYear {
		bars = bars[len(bars)-TradingDaysPerYear:]
	}
	for _, b := range bars {
		if !high.Valid || b.High.GreaterThan(high.Decimal) {
			high = decimal.NewNullDecimal(b.High)
		}
		if !low.Valid || b.Low.LessThan(low.Decimal) {
			low = decimal.NewNullDecimal(b.Low)
		}
	}
	return high, low
}

// nearBoundPct is how close (in percent) a price must be to a 52-week bound
// to be called "near" it.
var nearBoundPct = decimal.NewFromInt(3)

var hundred = decimal.NewFromInt(100)

// Context52Week classifies price against its 52-week range:
// "Near 52w high", "Near 52w low" or "N% off 52w high".
// It returns "" when either bound is missing or the high is zero.
func Context52Week(price decimal.Decimal, high, low decimal.NullDecimal) string {
	if !high.Valid || !low.Valid || high.Decimal.IsZero() {
		return ""
	}
	offHigh := high.Decimal.Sub(price).Div(high.Decimal).Mul(hundred)
	offLow := decimal.Zero
	if low.Decimal.IsPositive() {
		offLow = price.Sub(low.Decimal).Div(low.Decimal).Mul(hundred)
	}

	switch {
	case offHigh.LessThan(nearBoundPct):
		return "Near 52w high"
	case offLow.LessThan(nearBoundPct):
		return "Near 52w low"
	default:
		return offHigh.StringFixed(0) + "% off 52w high"
	}
}
