package portfolio

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/olympe-app/portfolio-service/internal/metrics"
	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/olympe-app/portfolio-service/internal/pricing"
)

const dayFormat = "2006-01-02"

// backfillBatchSize bounds the per-transaction size of history inserts.
const backfillBatchSize = 500

// RecordPrice historizes one resolved quote for an instrument. The day
// bucket is the calendar date of the fetch in the application timezone;
// a price already recorded for that (instrument, day) makes this a no-op
// and the first price of the day stands. Returns whether a row was
// actually inserted.
func (s *Service) RecordPrice(instrumentID string, q pricing.Quote) (bool, error) {
	fetchedAt := s.now()
	obs := &models.PriceObservation{
		ID:           uuid.NewString(),
		InstrumentID: instrumentID,
		Price:        q.Price,
		Currency:     q.Currency,
		Source:       q.Source,
		FetchedAt:    fetchedAt,
		Day:          fetchedAt.In(s.loc).Format(dayFormat),
	}

	inserted, err := s.store.InsertPriceObservation(obs)
	if err != nil {
		return false, err
	}
	outcome := "inserted"
	if !inserted {
		outcome = "duplicate"
	}
	metrics.PricesHistorized.WithLabelValues(q.Source, outcome).Inc()
	return inserted, nil
}

// HistorizePrice ingests an externally sourced price (event feed) for a
// symbol: the instrument is created lazily, the price goes through the
// same day-level dedup as provider lookups, and cached holding
// valuations are refreshed.
func (s *Service) HistorizePrice(ctx context.Context, symbol string, price decimal.Decimal, currency, source string) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}

	inst, err := s.store.FindOrCreateInstrument(symbol)
	if err != nil {
		return err
	}
	if _, err := s.RecordPrice(inst.ID, pricing.Quote{Price: price, Currency: currency, Source: source}); err != nil {
		return err
	}
	if _, err := s.store.UpdateHoldingValuation(inst.ID, price); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.PublishPriceUpdate(ctx, symbol, price); err != nil {
			log.Printf("failed to publish price update for %s: %v", symbol, err)
		}
	}
	return nil
}

// BackfillHistory loads the full daily price history of a symbol and
// inserts the days not yet observed, in batches. Re-running it is safe:
// already-observed days are filtered out up front and the unique
// constraint catches stragglers.
func (s *Service) BackfillHistory(ctx context.Context, symbol string) (int, error) {
	inst, err := s.store.FindOrCreateInstrument(symbol)
	if err != nil {
		return 0, err
	}

	observed, err := s.store.GetObservedDays(inst.ID)
	if err != nil {
		return 0, err
	}

	history, err := s.history.History(ctx, symbol)
	if err != nil {
		return 0, err
	}

	var pending []*models.PriceObservation
	for _, p := range history {
		if observed[p.Day] {
			continue
		}
		fetchedAt, err := time.ParseInLocation(dayFormat, p.Day, s.loc)
		if err != nil {
			continue
		}
		pending = append(pending, &models.PriceObservation{
			ID:           uuid.NewString(),
			InstrumentID: inst.ID,
			Price:        p.Price,
			Source:       "yahoo",
			FetchedAt:    fetchedAt,
			Day:          p.Day,
		})
	}

	inserted := 0
	for start := 0; start < len(pending); start += backfillBatchSize {
		end := start + backfillBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		n, err := s.store.InsertPriceBatch(pending[start:end])
		inserted += n
		if err != nil {
			// Everything before this batch is committed; the next run
			// picks up from here.
			return inserted, fmt.Errorf("failed to insert backfill batch: %w", err)
		}
	}

	if inserted > 0 {
		metrics.PricesHistorized.WithLabelValues("yahoo", "backfilled").Add(float64(inserted))
		log.Printf("backfilled %d days for %s", inserted, symbol)
	}
	return inserted, nil
}
