// Package pricing resolves market prices by querying third-party
// providers in a fixed priority order with per-provider fallback.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Quote is one resolved price. Price is always positive. Source names
// the provider that produced it and survives a cache round trip.
type Quote struct {
	Price    decimal.Decimal
	Currency string
	Source   string
}

// Provider is one market-data source. Quote returns an error for every
// kind of failure (transport, bad status, malformed payload, missing or
// non-positive price); the resolver degrades to the next provider.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// ErrNoPrice is returned when a provider response carries no usable price.
var ErrNoPrice = errors.New("no usable price in response")

// httpProvider carries the plumbing shared by all providers: an injected
// configuration, a bounded-timeout client and a request rate limiter.
type httpProvider struct {
	cfg     config.ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPProvider(cfg config.ProviderConfig, timeout time.Duration, rps float64) httpProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}
	return httpProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// getJSON performs a rate-limited GET and decodes the JSON body into dst.
func (p *httpProvider) getJSON(ctx context.Context, url string, headers map[string]string, dst interface{}) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return nil
}

// positivePrice extracts a positive decimal from a loosely typed JSON
// value. Providers disagree on number encoding: plain numbers, strings,
// even strings with a comma decimal separator all occur in the wild.
func positivePrice(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		d := decimal.NewFromFloat(n)
		return d, d.IsPositive()
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil && d.IsPositive()
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(n), ",", "."))
		return d, err == nil && d.IsPositive()
	default:
		return decimal.Zero, false
	}
}
