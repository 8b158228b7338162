package pricing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
	"github.com/shopspring/decimal"
)

// yahooUserAgent is required: the quote endpoints reject requests that do
// not look like a browser.
const yahooUserAgent = "Mozilla/5.0 (compatible; OlympeBot/1.0; +https://olympe.local)"

// Yahoo is the tertiary quote provider and the source of bulk daily
// history for backfills.
type Yahoo struct {
	httpProvider
}

// NewYahoo creates a Yahoo provider from injected configuration.
func NewYahoo(cfg config.ProviderConfig, timeout time.Duration, rps float64) *Yahoo {
	return &Yahoo{newHTTPProvider(cfg, timeout, rps)}
}

// Name implements Provider.
func (y *Yahoo) Name() string { return "yahoo" }

// Quote fetches the regular market price and its currency.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (Quote, error) {
	addr := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", y.cfg.BaseURL, url.QueryEscape(symbol))

	var payload struct {
		QuoteResponse struct {
			Result []struct {
				RegularMarketPrice interface{} `json:"regularMarketPrice"`
				Currency           string      `json:"currency"`
			} `json:"result"`
		} `json:"quoteResponse"`
	}
	headers := map[string]string{
		"User-Agent": yahooUserAgent,
		"Accept":     "application/json, text/plain, */*",
	}
	if err := y.getJSON(ctx, addr, headers, &payload); err != nil {
		return Quote{}, err
	}

	if len(payload.QuoteResponse.Result) == 0 {
		return Quote{}, ErrNoPrice
	}
	first := payload.QuoteResponse.Result[0]
	price, ok := positivePrice(first.RegularMarketPrice)
	if !ok {
		return Quote{}, ErrNoPrice
	}
	return Quote{Price: price, Currency: first.Currency}, nil
}

// HistoricalPrice is one (date, adjusted close) pair from the daily
// history download.
type HistoricalPrice struct {
	Day   string // YYYY-MM-DD
	Price decimal.Decimal
}

// History downloads the full daily price history of a symbol as
// (day, adjusted close) pairs, oldest first. Rows without a usable price
// are skipped.
func (y *Yahoo) History(ctx context.Context, symbol string) ([]HistoricalPrice, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	addr := fmt.Sprintf(
		"%s/v7/finance/download/%s?period1=0&period2=%d&interval=1d&events=history&includeAdjustedClose=true",
		y.cfg.BaseURL, url.PathEscape(symbol), time.Now().Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return parseHistoryCSV(resp.Body)
}

// parseHistoryCSV reads the daily-history CSV: Date,Open,High,Low,Close,
// Adj Close,Volume. The adjusted close (column 5) is preferred, falling
// back to the close (column 4); "null" cells and non-positive prices are
// skipped.
func parseHistoryCSV(r io.Reader) ([]HistoricalPrice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed history CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var prices []HistoricalPrice
	for _, cols := range records[1:] { // skip header
		if len(cols) < 5 {
			continue
		}
		day := cols[0]
		raw := ""
		if len(cols) > 5 {
			raw = cols[5]
		}
		if raw == "" || raw == "null" {
			raw = cols[4]
		}
		if day == "" || raw == "" || raw == "null" {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			continue
		}
		prices = append(prices, HistoricalPrice{Day: day, Price: price})
	}
	return prices, nil
}
