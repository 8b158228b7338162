package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/shopspring/decimal"
)

// CreateAccount inserts a new account.
func (db *DB) CreateAccount(a *models.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, type, currency, initial_amount, current_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	err := db.conn.QueryRow(query,
		a.ID, a.UserID, a.Name, a.Type, a.Currency, a.InitialAmount, a.CurrentAmount, now,
	).Scan(&a.ID)

	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", a.Name, err)
	}
	a.CreatedAt = now
	return nil
}

// GetAccountByID retrieves an account by id.
func (db *DB) GetAccountByID(id string) (*models.Account, error) {
	query := `
		SELECT id, user_id, name, type, currency, initial_amount, current_amount, created_at
		FROM accounts
		WHERE id = $1
	`
	a, err := scanAccount(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetAccountsByUser retrieves all accounts of a user, oldest first.
func (db *DB) GetAccountsByUser(userID string) ([]*models.Account, error) {
	query := `
		SELECT id, user_id, name, type, currency, initial_amount, current_amount, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListUserIDs returns the distinct user ids that own at least one account.
// Used by the daily snapshot job.
func (db *DB) ListUserIDs() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT user_id FROM accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var initial, current sql.NullString

	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Currency, &initial, &current, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if initial.Valid {
		a.InitialAmount, _ = decimal.NewFromString(initial.String)
	}
	if current.Valid {
		a.CurrentAmount, _ = decimal.NewFromString(current.String)
	}
	return &a, nil
}
