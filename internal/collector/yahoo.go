package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"StockPulse/internal/calculator"
	"StockPulse/internal/calendar"
	"StockPulse/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements QuoteFetcher using the Yahoo Finance public API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	// Now decides which extended-hours price applies; defaults to time.Now.
	Now func() time.Time
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: yahooBaseURL,
		Now:     time.Now,
	}
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooError        `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		PreviousClose      *float64 `json:"previousClose"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
		FiftyTwoWeekHigh   *float64 `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow    *float64 `json:"fiftyTwoWeekLow"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			High []*float64 `json:"high"`
			Low  []*float64 `json:"low"`
		} `json:"quote"`
	} `json:"indicators"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yahooQuote is the subset of the v7 quote endpoint used for optional fields.
type yahooQuote struct {
	QuoteResponse struct {
		Result []yahooQuoteInfo `json:"result"`
		Error  *yahooError      `json:"error"`
	} `json:"quoteResponse"`
}

type yahooQuoteInfo struct {
	Symbol          string   `json:"symbol"`
	PreMarketPrice  *float64 `json:"preMarketPrice"`
	PostMarketPrice *float64 `json:"postMarketPrice"`
	MarketCap       *float64 `json:"marketCap"`
	TrailingPE      *float64 `json:"trailingPE"`
}

func nullable(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

// FetchQuote assembles a quote from the chart endpoint (price, previous close,
// 52-week range) and the quote endpoint (extended hours, market cap, P/E).
// Only the chart call is required; the rest is best effort.
func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	res, err := f.fetchChart(ctx, symbol, "5m", "1d")
	if err != nil {
		return model.Quote{}, err
	}

	meta := res.Meta
	prev := meta.PreviousClose
	if prev == nil {
		prev = meta.ChartPreviousClose
	}
	if meta.RegularMarketPrice == nil || prev == nil || *prev == 0 {
		return model.Quote{}, fmt.Errorf("yahoo: incomplete quote for %s", symbol)
	}

	q := model.NewQuote(symbol, decimal.NewFromFloat(*meta.RegularMarketPrice), decimal.NewFromFloat(*prev))
	q.YearHigh = nullable(meta.FiftyTwoWeekHigh)
	q.YearLow = nullable(meta.FiftyTwoWeekLow)
	if !q.YearHigh.Valid || !q.YearLow.Valid {
		f.fill52WeekFromBars(ctx, &q)
	}
	q.Context52w = calculator.Context52Week(q.Price, q.YearHigh, q.YearLow)

	if info, err := f.fetchInfo(ctx, symbol); err == nil {
		q.MarketCap = nullable(info.MarketCap)
		q.PERatio = nullable(info.TrailingPE)

		switch calendar.ExtendedSession(f.now()) {
		case model.SessionPre:
			if info.PreMarketPrice != nil && *info.PreMarketPrice != 0 {
				q.ExtendedPrice = nullable(info.PreMarketPrice)
				q.ExtendedLabel = model.SessionPre
			}
		case model.SessionAfter:
			if info.PostMarketPrice != nil && *info.PostMarketPrice != 0 {
				q.ExtendedPrice = nullable(info.PostMarketPrice)
				q.ExtendedLabel = model.SessionAfter
			}
		}
	}
	return q, nil
}

func (f *YahooFetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// fill52WeekFromBars falls back to a year of daily bars when the chart
// metadata omits the 52-week range.
func (f *YahooFetcher) fill52WeekFromBars(ctx context.Context, q *model.Quote) {
	res, err := f.fetchChart(ctx, q.Symbol, "1d", "1y")
	if err != nil {
		return
	}
	q.YearHigh, q.YearLow = calculator.YearRange(dailyBars(res))
}

func (f *YahooFetcher) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) (*yahooChartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(symbol), interval, rng)

	var chart yahooChart
	if err := f.get(ctx, u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}
	return &chart.Chart.Result[0], nil
}

func (f *YahooFetcher) fetchInfo(ctx context.Context, symbol string) (*yahooQuoteInfo, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", f.BaseURL, url.QueryEscape(symbol))

	var quote yahooQuote
	if err := f.get(ctx, u, &quote); err != nil {
		return nil, err
	}
	if quote.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", quote.QuoteResponse.Error.Description)
	}
	if len(quote.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no quote info for %s", symbol)
	}
	return &quote.QuoteResponse.Result[0], nil
}

// dailyBars converts a chart result into chronological bars, skipping
// rows Yahoo reports as null (holidays, halts).
func dailyBars(result *yahooChartResult) []model.DailyBar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.DailyBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.High) || i >= len(quote.Low) {
			break
		}
		if quote.High[i] == nil || quote.Low[i] == nil {
			continue
		}
		bars = append(bars, model.DailyBar{
			Day:  time.Unix(ts, 0),
			High: decimal.NewFromFloat(*quote.High[i]),
			Low:  decimal.NewFromFloat(*quote.Low[i]),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Day.Before(bars[j].Day) })
	return bars
}
