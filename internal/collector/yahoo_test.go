package collector

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPulse/internal/calendar"
	"StockPulse/internal/model"
)

const chartAAPL = `{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketPrice":195.5,
"previousClose":190.0,"fiftyTwoWeekHigh":200.0,"fiftyTwoWeekLow":150.0},
"timestamp":[1],"indicators":{"quote":[{"open":[1],"high":[1],"low":[1],"close":[1],"volume":[1]}]}}],"error":null}}`

const quoteAAPL = `{"quoteResponse":{"result":[{"symbol":"AAPL","preMarketPrice":194.0,
"postMarketPrice":197.25,"marketCap":3000000000000,"trailingPE":31.4}],"error":null}}`

func yahooServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for prefix, body := range routes {
			if strings.HasPrefix(r.URL.Path+"?"+r.URL.RawQuery, prefix) {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestYahoo(srv *httptest.Server, now time.Time) *YahooFetcher {
	return &YahooFetcher{Client: srv.Client(), BaseURL: srv.URL, Now: func() time.Time { return now }}
}

func TestYahooFetchQuote_AfterHours(t *testing.T) {
	srv := yahooServer(t, map[string]string{
		"/v8/finance/chart/AAPL": chartAAPL,
		"/v7/finance/quote":      quoteAAPL,
	})
	// 17:30 ET on a Wednesday.
	f := newTestYahoo(srv, time.Date(2025, 1, 15, 17, 30, 0, 0, calendar.Eastern))

	q, err := f.FetchQuote(t.Context(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "195.50", q.Price.StringFixed(2))
	assert.Equal(t, "5.50", q.Change.StringFixed(2))
	assert.Equal(t, "2.89", q.ChangePercent.StringFixed(2))
	assert.Equal(t, "Near 52w high", q.Context52w)
	assert.Equal(t, model.SessionAfter, q.ExtendedLabel)
	assert.Equal(t, "197.25", q.ExtendedPrice.Decimal.StringFixed(2))
	assert.Equal(t, "31.4", q.PERatio.Decimal.String())
	assert.True(t, q.MarketCap.Valid)
}

func TestYahooFetchQuote_PreMarket(t *testing.T) {
	srv := yahooServer(t, map[string]string{
		"/v8/finance/chart/AAPL": chartAAPL,
		"/v7/finance/quote":      quoteAAPL,
	})
	f := newTestYahoo(srv, time.Date(2025, 1, 15, 8, 0, 0, 0, calendar.Eastern))

	q, err := f.FetchQuote(t.Context(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, model.SessionPre, q.ExtendedLabel)
	assert.Equal(t, "194.00", q.ExtendedPrice.Decimal.StringFixed(2))
}

func TestYahooFetchQuote_RegularHoursHasNoExtended(t *testing.T) {
	srv := yahooServer(t, map[string]string{
		"/v8/finance/chart/AAPL": chartAAPL,
		"/v7/finance/quote":      quoteAAPL,
	})
	f := newTestYahoo(srv, time.Date(2025, 1, 15, 11, 0, 0, 0, calendar.Eastern))

	q, err := f.FetchQuote(t.Context(), "AAPL")
	require.NoError(t, err)
	assert.False(t, q.HasExtended())
	assert.Empty(t, q.ExtendedLabel)
}

func TestYahooFetchQuote_InfoFailureIsTolerated(t *testing.T) {
	srv := yahooServer(t, map[string]string{
		"/v8/finance/chart/AAPL": chartAAPL,
	})
	f := newTestYahoo(srv, time.Date(2025, 1, 15, 17, 30, 0, 0, calendar.Eastern))

	q, err := f.FetchQuote(t.Context(), "AAPL")
	require.NoError(t, err)
	assert.False(t, q.MarketCap.Valid)
	assert.False(t, q.HasExtended())
}

func TestYahooFetchQuote_52WeekFallbackFromBars(t *testing.T) {
	srv := yahooServer(t, map[string]string{
		"/v8/finance/chart/MSFT?interval=5m": `{"chart":{"result":[{"meta":{"symbol":"MSFT",
"regularMarketPrice":300,"chartPreviousClose":290}}],"error":null}}`,
		"/v8/finance/chart/MSFT?interval=1d": `{"chart":{"result":[{"meta":{},"timestamp":[1,2,3],
"indicators":{"quote":[{"open":[350,null,310],"high":[400,null,320],"low":[340,null,200],
"close":[360,null,315],"volume":[1,null,1]}]}}],"error":null}}`,
	})
	f := newTestYahoo(srv, time.Date(2025, 1, 15, 11, 0, 0, 0, calendar.Eastern))

	q, err := f.FetchQuote(t.Context(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "400", q.YearHigh.Decimal.String())
	assert.Equal(t, "200", q.YearLow.Decimal.String())
	assert.Equal(t, "25% off 52w high", q.Context52w)
}

func TestYahooFetchQuote_Errors(t *testing.T) {
	srv := yahooServer(t, map[string]string{
		"/v8/finance/chart/BAD":   `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`,
		"/v8/finance/chart/EMPTY": `{"chart":{"result":[{"meta":{"symbol":"EMPTY"}}],"error":null}}`,
	})
	f := newTestYahoo(srv, time.Now())

	_, err := f.FetchQuote(t.Context(), "BAD")
	assert.ErrorContains(t, err, "No data found")

	_, err = f.FetchQuote(t.Context(), "EMPTY")
	assert.ErrorContains(t, err, "incomplete quote")

	_, err = f.FetchQuote(t.Context(), "MISSING")
	assert.ErrorContains(t, err, "status 404")
}
