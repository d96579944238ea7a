package collector

import (
	"context"

	"StockPulse/internal/model"
)

// QuoteFetcher loads a single quote from an upstream data provider.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (model.Quote, error)
	Name() string
}
