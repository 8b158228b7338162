package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a user's position in an instrument within an account.
// Quantity and AvgBuyPrice are weighted-averaged on each purchase;
// AvgBuyPrice is deliberately NOT recomputed on a sell. CurrentPrice and
// CurrentValue are caches kept in sync by the price refresh cycle and may
// lag the market by one cycle.
type Holding struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	AccountID    string          `json:"account_id"`
	InstrumentID string          `json:"instrument_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	CurrentPrice decimal.Decimal `json:"current_price,omitempty"`
	CurrentValue decimal.Decimal `json:"current_value,omitempty"`
	AssetLabel   string          `json:"asset_label"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MovementType distinguishes buy and sell movements.
type MovementType string

const (
	MovementBuy  MovementType = "BUY"
	MovementSell MovementType = "SELL"
)

// Movement is an immutable audit record of a buy or sell. Movements are
// advisory only: holdings remain the source of truth for current position.
type Movement struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	AccountID   string          `json:"account_id"`
	HoldingID   string          `json:"holding_id"`
	Type        MovementType    `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
