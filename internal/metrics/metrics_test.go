package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPulse/internal/cache"
	"StockPulse/internal/model"
)

// counterValue gathers the registry and returns the value for one label pair.
func counterValue(t *testing.T, m *Metrics, family, label, value string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestObserveCycle(t *testing.T) {
	m := New()
	m.ObserveCycle("posted", 2*time.Second)
	m.ObserveCycle("posted", time.Second)
	m.ObserveCycle("skipped_closed", time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m, "stockpulse_scheduler_cycles_total", "outcome", "posted"))
	assert.Equal(t, 1.0, counterValue(t, m, "stockpulse_scheduler_cycles_total", "outcome", "skipped_closed"))
}

func TestObserveLookupWithCache(t *testing.T) {
	m := New()
	c := cache.New(time.Minute, cache.WithLookupHook(m.ObserveLookup))
	p := &cache.Provider{Cache: c, Fetch: func(_ context.Context, sym string) (model.Quote, bool) {
		return model.Quote{Symbol: sym}, sym != "BAD"
	}}

	p.Quote(t.Context(), "AAPL")
	p.Quote(t.Context(), "AAPL")
	p.Quote(t.Context(), "BAD")

	assert.Equal(t, 1.0, counterValue(t, m, "stockpulse_cache_lookups_total", "result", "miss"))
	assert.Equal(t, 1.0, counterValue(t, m, "stockpulse_cache_lookups_total", "result", "hit"))
	assert.Equal(t, 1.0, counterValue(t, m, "stockpulse_cache_lookups_total", "result", "failure"))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveNextWake(time.Unix(1736956800, 0))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "stockpulse_scheduler_next_wake_timestamp_seconds")
	assert.Contains(t, string(body), "go_goroutines")
}
