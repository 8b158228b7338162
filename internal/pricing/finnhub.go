package pricing

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
)

// Finnhub is the primary quote provider.
type Finnhub struct {
	httpProvider
}

// NewFinnhub creates a Finnhub provider from injected configuration.
func NewFinnhub(cfg config.ProviderConfig, timeout time.Duration, rps float64) *Finnhub {
	return &Finnhub{newHTTPProvider(cfg, timeout, rps)}
}

// Name implements Provider.
func (f *Finnhub) Name() string { return "finnhub" }

// Quote fetches the current quote; the price lives in the "c" field.
func (f *Finnhub) Quote(ctx context.Context, symbol string) (Quote, error) {
	addr := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		f.cfg.BaseURL, url.QueryEscape(symbol), url.QueryEscape(f.cfg.APIKey))

	var payload struct {
		Current interface{} `json:"c"`
	}
	if err := f.getJSON(ctx, addr, nil, &payload); err != nil {
		return Quote{}, err
	}

	price, ok := positivePrice(payload.Current)
	if !ok {
		return Quote{}, ErrNoPrice
	}
	return Quote{Price: price}, nil
}

// SearchResult is one symbol suggestion from Finnhub's search endpoint.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Search looks up instruments by ticker or free-text name, for the
// symbol-autocomplete surface.
func (f *Finnhub) Search(ctx context.Context, query string) ([]SearchResult, error) {
	addr := fmt.Sprintf("%s/search?q=%s&token=%s",
		f.cfg.BaseURL, url.QueryEscape(query), url.QueryEscape(f.cfg.APIKey))

	var payload struct {
		Result []SearchResult `json:"result"`
	}
	if err := f.getJSON(ctx, addr, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Result, nil
}
