package models

import (
	"time"
)

// AssetClass classifies an instrument for allocation purposes.
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassETF    AssetClass = "etf"
	AssetClassCrypto AssetClass = "crypto"
	AssetClassCash   AssetClass = "cash"
	AssetClassOther  AssetClass = "other"
)

// Instrument is a tradable security or asset. Instruments form a shared
// dictionary across all users: they are created lazily the first time a
// symbol is referenced and never deleted, because historical prices keep
// pointing at them.
type Instrument struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name"`
	AssetClass AssetClass `json:"asset_class,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	Exchange   string     `json:"exchange,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
