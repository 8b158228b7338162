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

func TestNormalizeEODHDSymbol(t *testing.T) {
	cases := map[string]string{
		"EUNL.DE": "EUNL.XETRA",
		"VUSA.L":  "VUSA.LSE",
		"SIE.F":   "SIE.FRA",
		"RYA.IR":  "RYA.ISE",
		"IWDA.AS": "IWDA.AS",
		"ESE.PA":  "ESE.PA",
		"ABI.BR":  "ABI.BR",
		"ENI.MI":  "ENI.MI",
		"NESN.SW": "NESN.SW",
		"eunl.de": "eunl.XETRA", // suffix match is case-insensitive
		"AAPL":    "AAPL",       // no suffix
		"X.ZZ":    "X.ZZ",       // unknown suffix passes through
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeEODHDSymbol(in), "symbol %q", in)
	}
}

func newTestEODHD(t *testing.T, handler http.HandlerFunc) (*EODHD, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEODHD(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, time.Second, 100), srv
}

func TestEODHD_FieldPriority(t *testing.T) {
	// "close" is absent, "c" is zero, "last" carries the price
	e, _ := newTestEODHD(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c": 0, "last": 87.3, "previousClose": 86.0}`))
	})

	q, err := e.Quote(context.Background(), "VUSA.L")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("87.3")))
}

func TestEODHD_StringPriceWithComma(t *testing.T) {
	e, _ := newTestEODHD(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"close": "12,34"}`))
	})

	q, err := e.Quote(context.Background(), "ESE.PA")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("12.34")))
}

func TestEODHD_NormalizesSymbolInRequest(t *testing.T) {
	var requested string
	e, _ := newTestEODHD(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write([]byte(`{"close": 1.0}`))
	})

	_, err := e.Quote(context.Background(), "EUNL.DE")
	require.NoError(t, err)
	assert.Contains(t, requested, "EUNL.XETRA")
}

func TestEODHD_NoUsableField(t *testing.T) {
	e, _ := newTestEODHD(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"volume": 1000, "close": -3}`))
	})

	_, err := e.Quote(context.Background(), "X")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestEODHD_BadStatus(t *testing.T) {
	e, _ := newTestEODHD(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	})

	_, err := e.Quote(context.Background(), "X")
	assert.Error(t, err)
}

func TestEODHD_MalformedJSON(t *testing.T) {
	e, _ := newTestEODHD(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := e.Quote(context.Background(), "X")
	assert.Error(t, err)
}
