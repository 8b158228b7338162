// Package cache wraps Redis with the service's price-caching operations.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
	"github.com/olympe-app/portfolio-service/internal/pricing"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Client wraps the Redis client with price-cache operations.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a new Redis cache client.
func New(cfg config.RedisConfig, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// NewFromAddr creates a client against a bare address. Used by tests.
func NewFromAddr(addr string, ttl time.Duration) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{Addr: addr}), ttl: ttl}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

type cachedQuote struct {
	Price    string `json:"price"`
	Currency string `json:"currency,omitempty"`
	Source   string `json:"source,omitempty"`
}

// GetQuote implements pricing.QuoteCache.
func (c *Client) GetQuote(ctx context.Context, symbol string) (pricing.Quote, bool, error) {
	key := fmt.Sprintf("price:%s", symbol)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return pricing.Quote{}, false, nil
	}
	if err != nil {
		return pricing.Quote{}, false, err
	}

	var cached cachedQuote
	if err := json.Unmarshal(data, &cached); err != nil {
		return pricing.Quote{}, false, fmt.Errorf("failed to unmarshal cached quote: %w", err)
	}
	price, err := decimal.NewFromString(cached.Price)
	if err != nil {
		return pricing.Quote{}, false, fmt.Errorf("corrupt cached price: %w", err)
	}
	return pricing.Quote{Price: price, Currency: cached.Currency, Source: cached.Source}, true, nil
}

// SetQuote implements pricing.QuoteCache.
func (c *Client) SetQuote(ctx context.Context, symbol string, q pricing.Quote) error {
	key := fmt.Sprintf("price:%s", symbol)
	data, err := json.Marshal(cachedQuote{Price: q.Price.String(), Currency: q.Currency, Source: q.Source})
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

// PublishPriceUpdate notifies subscribers (websocket fan-out, dashboards)
// that an instrument's price changed.
func (c *Client) PublishPriceUpdate(ctx context.Context, symbol string, price decimal.Decimal) error {
	payload, err := json.Marshal(map[string]string{
		"symbol": symbol,
		"price":  price.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal price update: %w", err)
	}
	return c.rdb.Publish(ctx, "prices.updated", payload).Err()
}

// Subscribe returns a subscription to price-update notifications.
func (c *Client) Subscribe(ctx context.Context) *redis.PubSub {
	return c.rdb.Subscribe(ctx, "prices.updated")
}
