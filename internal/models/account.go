package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a named container of holdings. Accounts that hold no
// instruments (pure cash or savings accounts) are valued directly by
// CurrentAmount; otherwise the account's value is the sum of its holdings.
type Account struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Currency      string          `json:"currency"`
	InitialAmount decimal.Decimal `json:"initial_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
