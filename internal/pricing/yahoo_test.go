package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahoo(config.ProviderConfig{BaseURL: srv.URL}, time.Second, 100)
}

func TestYahoo_Quote(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"quoteResponse":{"result":[{"regularMarketPrice":187.44,"currency":"USD"}]}}`))
	})

	q, err := y.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("187.44")))
	assert.Equal(t, "USD", q.Currency)
}

func TestYahoo_QuoteEmptyResult(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[]}}`))
	})

	_, err := y.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestParseHistoryCSV(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Open,High,Low,Close,Adj Close,Volume",
		"2024-01-02,100,102,99,101,100.5,12345",
		"2024-01-03,101,103,100,102,null,9999", // adj close null, falls back to close
		"2024-01-04,102,104,101,null,null,0",   // no usable price, skipped
		"2024-01-05,103,105,102,104,-1,0",      // non-positive, skipped
		"",
	}, "\n")

	prices, err := parseHistoryCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, prices, 2)

	assert.Equal(t, "2024-01-02", prices[0].Day)
	assert.True(t, prices[0].Price.Equal(decimal.RequireFromString("100.5")))
	assert.Equal(t, "2024-01-03", prices[1].Day)
	assert.True(t, prices[1].Price.Equal(decimal.NewFromInt(102)))
}

func TestYahoo_HistoryEndToEnd(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v7/finance/download/ESE.PA")
		w.Write([]byte("Date,Open,High,Low,Close,Adj Close,Volume\n2024-02-01,10,11,9,10.5,10.4,100\n"))
	})

	prices, err := y.History(context.Background(), "ESE.PA")
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "2024-02-01", prices[0].Day)
}
