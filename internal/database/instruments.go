package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/olympe-app/portfolio-service/internal/models"
)

// CreateInstrument inserts a new instrument into the shared dictionary.
func (db *DB) CreateInstrument(inst *models.Instrument) error {
	query := `
		INSERT INTO instruments (id, symbol, name, asset_class, currency, exchange, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	now := time.Now()
	err := db.conn.QueryRow(query,
		inst.ID, inst.Symbol, inst.Name, nullString(string(inst.AssetClass)),
		nullString(inst.Currency), nullString(inst.Exchange), now,
	).Scan(&inst.ID)

	if err != nil {
		return fmt.Errorf("failed to create instrument %s: %w", inst.Symbol, err)
	}
	inst.CreatedAt = now
	return nil
}

// GetInstrumentBySymbol retrieves an instrument by symbol.
func (db *DB) GetInstrumentBySymbol(symbol string) (*models.Instrument, error) {
	query := `
		SELECT id, symbol, name, asset_class, currency, exchange, created_at
		FROM instruments
		WHERE symbol = $1
	`
	inst, err := scanInstrument(db.conn.QueryRow(query, symbol))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument %s: %w", symbol, err)
	}
	return inst, nil
}

// FindOrCreateInstrument returns the instrument for symbol, creating it
// lazily on first reference. Created instruments default their name to the
// symbol until something better is known.
func (db *DB) FindOrCreateInstrument(symbol string) (*models.Instrument, error) {
	query := `
		INSERT INTO instruments (id, symbol, name, created_at)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET symbol = EXCLUDED.symbol
		RETURNING id, symbol, name, asset_class, currency, exchange, created_at
	`
	inst, err := scanInstrument(db.conn.QueryRow(query, uuid.NewString(), symbol, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to find or create instrument %s: %w", symbol, err)
	}
	return inst, nil
}

// GetInstrumentsByIDs retrieves instruments keyed by id.
func (db *DB) GetInstrumentsByIDs(ids []string) (map[string]*models.Instrument, error) {
	result := make(map[string]*models.Instrument, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `
		SELECT id, symbol, name, asset_class, currency, exchange, created_at
		FROM instruments
		WHERE id = ANY($1)
	`
	rows, err := db.conn.Query(query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get instruments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		result[inst.ID] = inst
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstrument(row rowScanner) (*models.Instrument, error) {
	var inst models.Instrument
	var assetClass, currency, exchange sql.NullString

	err := row.Scan(&inst.ID, &inst.Symbol, &inst.Name, &assetClass, &currency, &exchange, &inst.CreatedAt)
	if err != nil {
		return nil, err
	}

	if assetClass.Valid {
		inst.AssetClass = models.AssetClass(assetClass.String)
	}
	if currency.Valid {
		inst.Currency = currency.String
	}
	if exchange.Valid {
		inst.Exchange = exchange.String
	}
	return &inst, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
