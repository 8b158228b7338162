package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFinnhub(t *testing.T, handler http.HandlerFunc) *Finnhub {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFinnhub(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, time.Second, 100)
}

func TestFinnhub_Quote(t *testing.T) {
	f := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "k", r.URL.Query().Get("token"))
		w.Write([]byte(`{"c": 187.44, "h": 190, "l": 185}`))
	})

	q, err := f.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("187.44")))
}

func TestFinnhub_ZeroPriceIsFailure(t *testing.T) {
	// finnhub answers c=0 for unknown symbols instead of an error status
	f := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c": 0}`))
	})

	_, err := f.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestFinnhub_Search(t *testing.T) {
	f := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(`{"count":1,"result":[{"symbol":"AAPL","description":"Apple Inc","type":"Common Stock"}]}`))
	})

	results, err := f.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, "Apple Inc", results[0].Description)
}
