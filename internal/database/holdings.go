package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/shopspring/decimal"
)

// GetHoldingByID retrieves a holding by id.
func (db *DB) GetHoldingByID(id string) (*models.Holding, error) {
	query := `
		SELECT id, user_id, account_id, instrument_id, quantity, avg_buy_price,
		       current_price, current_value, asset_label, created_at
		FROM holdings
		WHERE id = $1
	`
	h, err := scanHolding(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// GetHoldingForInstrument retrieves the holding of one instrument within
// one account, or sql.ErrNoRows wrapped as not-found.
func (db *DB) GetHoldingForInstrument(userID, accountID, instrumentID string) (*models.Holding, error) {
	query := `
		SELECT id, user_id, account_id, instrument_id, quantity, avg_buy_price,
		       current_price, current_value, asset_label, created_at
		FROM holdings
		WHERE user_id = $1 AND account_id = $2 AND instrument_id = $3
	`
	h, err := scanHolding(db.conn.QueryRow(query, userID, accountID, instrumentID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// GetHoldingsByAccount retrieves all holdings of an account.
func (db *DB) GetHoldingsByAccount(accountID string) ([]*models.Holding, error) {
	return db.queryHoldings(`
		SELECT id, user_id, account_id, instrument_id, quantity, avg_buy_price,
		       current_price, current_value, asset_label, created_at
		FROM holdings
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
}

// GetHoldingsByUser retrieves all holdings of a user across accounts.
func (db *DB) GetHoldingsByUser(userID string) ([]*models.Holding, error) {
	return db.queryHoldings(`
		SELECT id, user_id, account_id, instrument_id, quantity, avg_buy_price,
		       current_price, current_value, asset_label, created_at
		FROM holdings
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
}

// GetOpenInstruments returns instrument id and symbol for every instrument
// referenced by at least one holding with quantity > 0. This is the refresh
// cycle's work list.
func (db *DB) GetOpenInstruments() (map[string]string, error) {
	query := `
		SELECT DISTINCT h.instrument_id, i.symbol
		FROM holdings h
		JOIN instruments i ON i.id = h.instrument_id
		WHERE h.quantity > 0
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get open instruments: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var id, symbol string
		if err := rows.Scan(&id, &symbol); err != nil {
			return nil, fmt.Errorf("failed to scan open instrument: %w", err)
		}
		result[id] = symbol
	}
	return result, rows.Err()
}

// ApplyBuy persists a buy: the holding (inserted when isNew, updated
// otherwise) together with its BUY movement, atomically.
func (db *DB) ApplyBuy(h *models.Holding, m *models.Movement, isNew bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if isNew {
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		now := time.Now()
		err = tx.QueryRow(`
			INSERT INTO holdings (id, user_id, account_id, instrument_id, quantity,
			                      avg_buy_price, current_price, current_value, asset_label, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, h.ID, h.UserID, h.AccountID, h.InstrumentID, h.Quantity,
			h.AvgBuyPrice, h.CurrentPrice, h.CurrentValue, h.AssetLabel, now,
		).Scan(&h.ID)
		if err != nil {
			return fmt.Errorf("failed to insert holding: %w", err)
		}
		h.CreatedAt = now
	} else {
		result, err := tx.Exec(`
			UPDATE holdings SET
				quantity = $2, avg_buy_price = $3, current_price = $4,
				current_value = $5, asset_label = $6
			WHERE id = $1
		`, h.ID, h.Quantity, h.AvgBuyPrice, h.CurrentPrice, h.CurrentValue, h.AssetLabel)
		if err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("holding not found: %s", h.ID)
		}
	}

	m.HoldingID = h.ID
	if err := insertMovement(tx, m); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ApplySell persists a sell: the holding is deleted when the remaining
// quantity is zero or below, updated otherwise, and the SELL movement is
// recorded, atomically. The average buy price is never touched here.
func (db *DB) ApplySell(h *models.Holding, m *models.Movement, deleteHolding bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if deleteHolding {
		result, err := tx.Exec(`DELETE FROM holdings WHERE id = $1`, h.ID)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("holding not found: %s", h.ID)
		}
	} else {
		result, err := tx.Exec(`
			UPDATE holdings SET quantity = $2, current_price = $3, current_value = $4
			WHERE id = $1
		`, h.ID, h.Quantity, h.CurrentPrice, h.CurrentValue)
		if err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("holding not found: %s", h.ID)
		}
	}

	if err := insertMovement(tx, m); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateHoldingValuation refreshes the cached price and value of every
// holding of an instrument. Returns the number of holdings touched.
func (db *DB) UpdateHoldingValuation(instrumentID string, price decimal.Decimal) (int, error) {
	query := `
		UPDATE holdings
		SET current_price = $2, current_value = quantity * $2
		WHERE instrument_id = $1
	`
	result, err := db.conn.Exec(query, instrumentID, price)
	if err != nil {
		return 0, fmt.Errorf("failed to update holding valuations: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (db *DB) queryHoldings(query string, args ...interface{}) ([]*models.Holding, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func scanHolding(row rowScanner) (*models.Holding, error) {
	var h models.Holding
	var currentPrice, currentValue sql.NullString
	var label sql.NullString

	err := row.Scan(&h.ID, &h.UserID, &h.AccountID, &h.InstrumentID, &h.Quantity,
		&h.AvgBuyPrice, &currentPrice, &currentValue, &label, &h.CreatedAt)
	if err != nil {
		return nil, err
	}

	if currentPrice.Valid {
		h.CurrentPrice, _ = decimal.NewFromString(currentPrice.String)
	}
	if currentValue.Valid {
		h.CurrentValue, _ = decimal.NewFromString(currentValue.String)
	}
	if label.Valid {
		h.AssetLabel = label.String
	}
	return &h, nil
}
