package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/shopspring/decimal"
)

// InsertPriceObservation historizes one price. The observations table has
// a UNIQUE (instrument_id, day) constraint, so a same-day duplicate is
// silently skipped and reported as inserted=false: the first price of the
// day wins, regardless of how many refreshes happen later that day.
func (db *DB) InsertPriceObservation(obs *models.PriceObservation) (bool, error) {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	query := `
		INSERT INTO asset_prices (id, instrument_id, price, currency, source, fetched_at, day)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (instrument_id, day) DO NOTHING
	`
	result, err := db.conn.Exec(query,
		obs.ID, obs.InstrumentID, obs.Price, nullString(obs.Currency),
		obs.Source, obs.FetchedAt, obs.Day,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert price observation: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// InsertPriceBatch historizes a batch of observations inside one
// transaction, skipping same-day duplicates. Returns the number of rows
// actually inserted. A failure aborts the whole batch.
func (db *DB) InsertPriceBatch(observations []*models.PriceObservation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO asset_prices (id, instrument_id, price, currency, source, fetched_at, day)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (instrument_id, day) DO NOTHING
	`
	inserted := 0
	for _, obs := range observations {
		if obs.ID == "" {
			obs.ID = uuid.NewString()
		}
		result, err := tx.Exec(query,
			obs.ID, obs.InstrumentID, obs.Price, nullString(obs.Currency),
			obs.Source, obs.FetchedAt, obs.Day,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert price batch row: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// GetObservedDays returns the set of day buckets already historized for an
// instrument. The backfill path uses this to skip known dates.
func (db *DB) GetObservedDays(instrumentID string) (map[string]bool, error) {
	rows, err := db.conn.Query(
		`SELECT day FROM asset_prices WHERE instrument_id = $1`, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get observed days: %w", err)
	}
	defer rows.Close()

	days := make(map[string]bool)
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days[day.Format("2006-01-02")] = true
	}
	return days, rows.Err()
}

// GetFirstPricesSince returns, per instrument, the first observed price at
// or after the window start. This is the reference-price rule for the
// 1d/30d/YTD performance windows: the nearest observation forward of the
// window start, not the exact N-days-ago price.
func (db *DB) GetFirstPricesSince(instrumentIDs []string, since time.Time) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(instrumentIDs))
	if len(instrumentIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT DISTINCT ON (instrument_id) instrument_id, price
		FROM asset_prices
		WHERE instrument_id = ANY($1) AND fetched_at >= $2
		ORDER BY instrument_id, fetched_at ASC
	`
	rows, err := db.conn.Query(query, pq.Array(instrumentIDs), since)
	if err != nil {
		return nil, fmt.Errorf("failed to get reference prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var price decimal.Decimal
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("failed to scan reference price: %w", err)
		}
		result[id] = price
	}
	return result, rows.Err()
}

// GetPriceHistory returns an instrument's observations from a given day
// on, oldest first.
func (db *DB) GetPriceHistory(instrumentID string, from time.Time) ([]*models.PriceObservation, error) {
	query := `
		SELECT id, instrument_id, price, currency, source, fetched_at, day
		FROM asset_prices
		WHERE instrument_id = $1 AND fetched_at >= $2
		ORDER BY fetched_at ASC
	`
	rows, err := db.conn.Query(query, instrumentID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	var observations []*models.PriceObservation
	for rows.Next() {
		var obs models.PriceObservation
		var currency sql.NullString
		var day time.Time
		err := rows.Scan(&obs.ID, &obs.InstrumentID, &obs.Price, &currency,
			&obs.Source, &obs.FetchedAt, &day)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price observation: %w", err)
		}
		if currency.Valid {
			obs.Currency = currency.String
		}
		obs.Day = day.Format("2006-01-02")
		observations = append(observations, &obs)
	}
	return observations, rows.Err()
}
