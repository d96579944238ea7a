package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Extended-hours session labels.
const (
	SessionPre   = "Pre"
	SessionAfter = "AH"
)

// Quote is a point-in-time snapshot for one ticker. Treat it as immutable;
// a newer fetch replaces it wholesale.
type Quote struct {
	Symbol        string
	Price         decimal.Decimal
	PreviousClose decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal

	YearHigh decimal.NullDecimal
	YearLow  decimal.NullDecimal
	// Context52w classifies the price against the 52-week range, e.g. "Near 52w high".
	Context52w string

	ExtendedPrice decimal.NullDecimal
	ExtendedLabel string // SessionPre, SessionAfter or empty

	MarketCap decimal.NullDecimal
	PERatio   decimal.NullDecimal
}

// NewQuote derives the change fields from price and previous close.
// previousClose must be non-zero.
func NewQuote(symbol string, price, previousClose decimal.Decimal) Quote {
	change := price.Sub(previousClose)
	return Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: previousClose,
		Change:        change,
		ChangePercent: change.Div(previousClose).Mul(decimal.NewFromInt(100)),
	}
}

// Up reports whether the quote is flat or higher than the previous close.
func (q Quote) Up() bool { return q.Change.Sign() >= 0 }

// HasExtended reports whether an extended-hours price should be shown.
func (q Quote) HasExtended() bool {
	return q.ExtendedPrice.Valid && q.ExtendedLabel != "" && !q.ExtendedPrice.Decimal.IsZero()
}

// Channel is a resolved chat destination.
type Channel struct {
	ID    int64
	Title string
}

// Update is the payload of one scheduled post or ad hoc check.
type Update struct {
	At        time.Time
	Requested int     // number of symbols asked for
	Quotes    []Quote // successful fetches, in watch-list order
}
