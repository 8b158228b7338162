package pricing

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/olympe-app/portfolio-service/internal/metrics"
)

// ErrUnresolved means every provider in the chain failed for a symbol.
// Callers must treat this as "no update this cycle", never as a zero
// price.
var ErrUnresolved = errors.New("price unresolved by all providers")

// QuoteCache is a read-through cache in front of the provider chain.
// Implementations must tolerate being unavailable: cache errors are
// logged and ignored.
type QuoteCache interface {
	GetQuote(ctx context.Context, symbol string) (Quote, bool, error)
	SetQuote(ctx context.Context, symbol string, q Quote) error
}

// Resolver tries providers in priority order and returns the first
// positive price. It has no side effects beyond the optional cache;
// historizing a resolved price is the caller's business.
type Resolver struct {
	providers []Provider
	cache     QuoteCache
}

// NewResolver builds a resolver over an ordered provider chain. cache may
// be nil.
func NewResolver(cache QuoteCache, providers ...Provider) *Resolver {
	return &Resolver{providers: providers, cache: cache}
}

// Resolve obtains one current price for symbol. Provider failures are
// logged and skipped; only when the whole chain fails does it return
// ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (Quote, error) {
	if r.cache != nil {
		if q, ok, err := r.cache.GetQuote(ctx, symbol); err != nil {
			log.Printf("price cache read failed for %s: %v", symbol, err)
		} else if ok {
			return q, nil
		}
	}

	for _, p := range r.providers {
		start := time.Now()
		q, err := p.Quote(ctx, symbol)
		metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.ProviderRequests.WithLabelValues(p.Name(), "failure").Inc()
			log.Printf("provider %s failed for %s: %v", p.Name(), symbol, err)
			continue
		}
		metrics.ProviderRequests.WithLabelValues(p.Name(), "success").Inc()
		q.Source = p.Name()

		if r.cache != nil {
			if err := r.cache.SetQuote(ctx, symbol, q); err != nil {
				log.Printf("price cache write failed for %s: %v", symbol, err)
			}
		}
		return q, nil
	}

	return Quote{}, ErrUnresolved
}
