package portfolio

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/olympe-app/portfolio-service/internal/metrics"
	"github.com/olympe-app/portfolio-service/internal/models"
)

// RefreshPrices resolves a current price for every instrument held in
// positive quantity, historizes it and refreshes the cached valuations.
// Instruments the whole provider chain fails on are skipped and keep
// their last cached price; one bad symbol never aborts the cycle.
// Returns the number of holdings whose valuation was updated.
func (s *Service) RefreshPrices(ctx context.Context) (int, error) {
	instruments, err := s.store.GetOpenInstruments()
	if err != nil {
		return 0, fmt.Errorf("failed to list open instruments: %w", err)
	}

	updated := 0
	for instrumentID, symbol := range instruments {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		quote, err := s.prices.Resolve(ctx, symbol)
		if err != nil {
			log.Printf("refresh: skipping %s: %v", symbol, err)
			continue
		}

		if _, err := s.RecordPrice(instrumentID, quote); err != nil {
			log.Printf("refresh: failed to historize %s: %v", symbol, err)
		}

		n, err := s.store.UpdateHoldingValuation(instrumentID, quote.Price)
		if err != nil {
			log.Printf("refresh: failed to update valuations for %s: %v", symbol, err)
			continue
		}
		updated += n

		if s.notifier != nil {
			if err := s.notifier.PublishPriceUpdate(ctx, symbol, quote.Price); err != nil {
				log.Printf("refresh: failed to publish price update for %s: %v", symbol, err)
			}
		}
	}

	metrics.RefreshCycles.Inc()
	metrics.RefreshHoldingsUpdated.Set(float64(updated))
	log.Printf("price refresh done: %d instruments, %d holdings updated", len(instruments), updated)
	return updated, nil
}

// SnapshotDaily upserts today's total portfolio value for every user.
// One row per (user, day): re-running within the same day overwrites,
// so the stored series is effectively end-of-day.
func (s *Service) SnapshotDaily(ctx context.Context) error {
	users, err := s.store.ListUserIDs()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	day := s.now().In(s.loc).Format(dayFormat)
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		total, err := s.totalValue(userID)
		if err != nil {
			log.Printf("snapshot: skipping user %s: %v", userID, err)
			continue
		}
		snap := &models.PortfolioSnapshot{
			UserID:     userID,
			Day:        day,
			TotalValue: total,
			ComputedAt: s.now(),
		}
		if err := s.store.UpsertPortfolioSnapshot(snap); err != nil {
			log.Printf("snapshot: failed to upsert for user %s: %v", userID, err)
		}
	}
	return nil
}

// totalValue sums holding valuations plus the balances of accounts that
// hold no instruments, mirroring the analytics valuation rule.
func (s *Service) totalValue(userID string) (decimal.Decimal, error) {
	accounts, err := s.store.GetAccountsByUser(userID)
	if err != nil {
		return decimal.Zero, err
	}
	holdings, err := s.store.GetHoldingsByUser(userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	held := make(map[string]bool, len(accounts))
	for _, h := range holdings {
		value := h.CurrentValue
		if value.IsZero() {
			value = h.Quantity.Mul(h.CurrentPrice)
		}
		total = total.Add(value)
		held[h.AccountID] = true
	}
	for _, a := range accounts {
		if !held[a.ID] {
			total = total.Add(a.CurrentAmount)
		}
	}
	return total, nil
}
