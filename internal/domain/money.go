package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits stored for every amount
// (NUMERIC(15,2) in Postgres).
const AmountScale = 2

var maxAmount = decimal.New(1, 13)

// ParseAmount parses a decimal string into a validated positive amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects non-positive amounts, amounts with more than two
// fractional digits, and amounts that do not fit the storage column.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountScale)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	return nil
}

// FormatAmount renders an amount with two fixed decimals, e.g. "$200.00".
func FormatAmount(d decimal.Decimal) string {
	return "$" + d.StringFixed(AmountScale)
}

// ValidateNotes enforces the notes length limit. Over-long notes are rejected,
// never truncated.
func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}
