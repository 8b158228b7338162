// Package parse converts user-entered numeric text into decimals.
// Form input arrives with either "." or "," as the decimal separator and
// is frequently padded with whitespace; parsing is centralized here so
// call sites get a typed error instead of silently coercing bad input.
package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmpty is returned for empty or whitespace-only input.
var ErrEmpty = errors.New("empty amount")

// ErrInvalid wraps any non-numeric input.
var ErrInvalid = errors.New("invalid amount")

// Amount parses a user-entered amount, accepting "," as a decimal
// separator ("12,50" and "12.50" are equal).
func Amount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return d, nil
}

// PositiveAmount parses an amount and rejects zero or negative values.
func PositiveAmount(s string) (decimal.Decimal, error) {
	d, err := Amount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: must be positive, got %s", ErrInvalid, d)
	}
	return d, nil
}
