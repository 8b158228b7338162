package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one historized (instrument, day, price) record.
// Observations are append-only: the first observation recorded for an
// instrument on a given calendar day wins, later same-day observations are
// dropped by the historizer. Day is the calendar date of FetchedAt in the
// application timezone.
type PriceObservation struct {
	ID           string          `json:"id"`
	InstrumentID string          `json:"instrument_id"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency,omitempty"`
	Source       string          `json:"source"`
	FetchedAt    time.Time       `json:"fetched_at"`
	Day          string          `json:"day"`
}

// PortfolioSnapshot is one daily total-value point of a user's portfolio.
// The snapshot job upserts one row per (user, day); the last write of the
// day wins, which makes the series an end-of-day one.
type PortfolioSnapshot struct {
	UserID     string          `json:"user_id"`
	Day        string          `json:"day"`
	TotalValue decimal.Decimal `json:"total_value"`
	ComputedAt time.Time       `json:"computed_at"`
}

// PriceEvent is a price update arriving over the event bus from an
// external feed. Prices are historized through the same dedup path as
// provider lookups.
type PriceEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      PriceEventData `json:"data"`
}

// PriceEventData carries the payload of a PRICE_UPDATED event. Price is a
// string because upstream feeds are inconsistent about number encoding.
type PriceEventData struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Currency string `json:"currency,omitempty"`
}

// MovementEvent is published after every holding mutation so downstream
// consumers (reporting, notifications) can follow buy/sell activity.
type MovementEvent struct {
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	Timestamp string    `json:"timestamp"`
	Movement  *Movement `json:"movement"`
}
