package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/olympe-app/portfolio-service/internal/models"
)

func insertMovement(tx *sql.Tx, m *models.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now()
	}
	_, err := tx.Exec(`
		INSERT INTO movements (id, user_id, account_id, holding_id, type, amount,
		                       unit_price, quantity, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.UserID, m.AccountID, m.HoldingID, string(m.Type), m.Amount,
		m.UnitPrice, m.Quantity, m.Description, m.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

// GetMovementsByUser returns a user's movements, most recent first.
func (db *DB) GetMovementsByUser(userID string, limit int) ([]*models.Movement, error) {
	query := `
		SELECT id, user_id, account_id, holding_id, type, amount,
		       unit_price, quantity, description, occurred_at
		FROM movements
		WHERE user_id = $1
		ORDER BY occurred_at DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get movements: %w", err)
	}
	defer rows.Close()

	var movements []*models.Movement
	for rows.Next() {
		var m models.Movement
		var movementType string
		var description sql.NullString
		err := rows.Scan(&m.ID, &m.UserID, &m.AccountID, &m.HoldingID, &movementType,
			&m.Amount, &m.UnitPrice, &m.Quantity, &description, &m.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		m.Type = models.MovementType(movementType)
		if description.Valid {
			m.Description = description.String
		}
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}
