package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"StockPulse/internal/calculator"
	"StockPulse/internal/model"
)

// RESTFetcher implements QuoteFetcher against a self-hosted quote API that
// serves GET {base}/api/v1/quote?symbol=XYZ.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restQuote is the expected JSON shape of the quote endpoint.
type restQuote struct {
	Symbol        string              `json:"symbol"`
	Price         decimal.Decimal     `json:"price"`
	PreviousClose decimal.Decimal     `json:"previous_close"`
	YearHigh      decimal.NullDecimal `json:"year_high"`
	YearLow       decimal.NullDecimal `json:"year_low"`
	ExtendedPrice decimal.NullDecimal `json:"extended_price"`
	ExtendedLabel string              `json:"extended_label"`
	MarketCap     decimal.NullDecimal `json:"market_cap"`
	PERatio       decimal.NullDecimal `json:"pe_ratio"`
}

func (f *RESTFetcher) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/api/v1/quote?symbol=%s", f.BaseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Quote{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.Quote{}, fmt.Errorf("fetch quote: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rq restQuote
	if err := json.NewDecoder(resp.Body).Decode(&rq); err != nil {
		return model.Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	if rq.PreviousClose.IsZero() {
		return model.Quote{}, fmt.Errorf("fetch quote: missing previous close for %s", symbol)
	}

	q := model.NewQuote(symbol, rq.Price, rq.PreviousClose)
	q.YearHigh, q.YearLow = rq.YearHigh, rq.YearLow
	q.Context52w = calculator.Context52Week(q.Price, q.YearHigh, q.YearLow)
	if rq.ExtendedLabel == model.SessionPre || rq.ExtendedLabel == model.SessionAfter {
		q.ExtendedPrice, q.ExtendedLabel = rq.ExtendedPrice, rq.ExtendedLabel
	}
	q.MarketCap, q.PERatio = rq.MarketCap, rq.PERatio
	return q, nil
}
