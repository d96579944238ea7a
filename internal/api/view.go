package api

import (
	"github.com/shopspring/decimal"

	"StockPulse/internal/model"
)

func newQuoteView(q model.Quote) quoteView {
	v := quoteView{
		Symbol:        q.Symbol,
		Price:         q.Price.StringFixed(2),
		PreviousClose: q.PreviousClose.StringFixed(2),
		Change:        q.Change.StringFixed(2),
		ChangePercent: q.ChangePercent.StringFixed(2),
		YearHigh:      fixed(q.YearHigh, 2),
		YearLow:       fixed(q.YearLow, 2),
		Context52w:    q.Context52w,
		MarketCap:     fixed(q.MarketCap, 0),
		PERatio:       fixed(q.PERatio, 2),
	}
	if q.HasExtended() {
		v.ExtendedPrice = fixed(q.ExtendedPrice, 2)
		v.ExtendedLabel = q.ExtendedLabel
	}
	return v
}

func fixed(d decimal.NullDecimal, places int32) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(places)
	return &s
}
