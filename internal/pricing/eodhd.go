package pricing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
)

// eodhdSuffixes remaps Yahoo/Finnhub exchange suffixes to the convention
// EODHD expects. Suffixes absent from the table pass through unchanged;
// this is a fixed lookup, not a general exchange resolver.
var eodhdSuffixes = map[string]string{
	"PA": "PA",    // Euronext Paris
	"AS": "AS",    // Euronext Amsterdam
	"BR": "BR",    // Brussels
	"DE": "XETRA", // XETRA
	"F":  "FRA",   // Frankfurt
	"L":  "LSE",   // London
	"MI": "MI",    // Milan
	"SW": "SW",    // Switzerland
	"IR": "ISE",   // Ireland
}

// NormalizeEODHDSymbol rewrites an exchange-suffixed symbol to EODHD's
// suffix convention, e.g. EUNL.DE becomes EUNL.XETRA and VUSA.L becomes
// VUSA.LSE. Symbols without a suffix, or with an unknown one, are
// returned as-is.
func NormalizeEODHDSymbol(symbol string) string {
	base, suffix, found := strings.Cut(symbol, ".")
	if !found || base == "" {
		return symbol
	}
	mapped, ok := eodhdSuffixes[strings.ToUpper(suffix)]
	if !ok {
		return symbol
	}
	return base + "." + mapped
}

// EODHD is the secondary, end-of-day provider.
type EODHD struct {
	httpProvider
}

// NewEODHD creates an EODHD provider from injected configuration.
func NewEODHD(cfg config.ProviderConfig, timeout time.Duration, rps float64) *EODHD {
	return &EODHD{newHTTPProvider(cfg, timeout, rps)}
}

// Name implements Provider.
func (e *EODHD) Name() string { return "eodhd" }

// eodhdPriceFields is the priority order in which a price is looked for.
// EODHD's real-time endpoint is inconsistent about which field carries
// the price depending on market state.
var eodhdPriceFields = []string{"close", "c", "last", "last_close", "previousClose", "price"}

// Quote fetches the real-time (or last-close) price, accepting the first
// positive numeric value among the known field names.
func (e *EODHD) Quote(ctx context.Context, symbol string) (Quote, error) {
	normalized := NormalizeEODHDSymbol(symbol)
	addr := fmt.Sprintf("%s/real-time/%s?api_token=%s&fmt=json",
		e.cfg.BaseURL, url.PathEscape(normalized), url.QueryEscape(e.cfg.APIKey))

	var payload map[string]interface{}
	if err := e.getJSON(ctx, addr, nil, &payload); err != nil {
		return Quote{}, err
	}

	for _, field := range eodhdPriceFields {
		if price, ok := positivePrice(payload[field]); ok {
			return Quote{Price: price}, nil
		}
	}
	return Quote{}, ErrNoPrice
}
