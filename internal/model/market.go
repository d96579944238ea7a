package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyBar is one trading day's price range.
type DailyBar struct {
	Day  time.Time
	High decimal.Decimal
	Low  decimal.Decimal
}
