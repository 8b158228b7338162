package database

import (
	"fmt"
	"time"

	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/shopspring/decimal"
)

// UpsertPortfolioSnapshot records a user's daily total value. One row per
// (user, day); re-running the snapshot job on the same day overwrites, so
// the stored series is an end-of-day one.
func (db *DB) UpsertPortfolioSnapshot(s *models.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_history (user_id, day, total_value, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, day)
		DO UPDATE SET total_value = EXCLUDED.total_value, computed_at = EXCLUDED.computed_at
	`
	now := time.Now()
	_, err := db.conn.Exec(query, s.UserID, s.Day, s.TotalValue, now)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio snapshot: %w", err)
	}
	s.ComputedAt = now
	return nil
}

// GetPortfolioHistory returns a user's daily value series, oldest first.
func (db *DB) GetPortfolioHistory(userID string) ([]*models.PortfolioSnapshot, error) {
	query := `
		SELECT user_id, day, total_value, computed_at
		FROM portfolio_history
		WHERE user_id = $1
		ORDER BY day ASC
	`
	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio history: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.PortfolioSnapshot
	for rows.Next() {
		var s models.PortfolioSnapshot
		var day time.Time
		var value decimal.Decimal
		if err := rows.Scan(&s.UserID, &day, &value, &s.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio snapshot: %w", err)
		}
		s.Day = day.Format("2006-01-02")
		s.TotalValue = value
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}
