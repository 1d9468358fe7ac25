package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION VALIDATOR - Per-kind rules for manual transactions
// =============================================================================

// ValidateManual checks a proposed manual transaction and returns its signed
// amount. Magnitudes are always entered positive; direction comes from the
// kind (penalty debits, advance/bonus/adjustment credit).
//
// System kinds (daily_credit, advance_deduction) are rejected here - only
// the accrual batch may produce them.
func ValidateManual(kind Kind, magnitude decimal.Decimal) (decimal.Decimal, error) {
	if !kind.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if !kind.Manual() {
		return decimal.Zero, fmt.Errorf("%w: %q is system-only", ErrInvalidKind, kind)
	}
	if !magnitude.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: magnitude must be positive, got %s", ErrInvalidAmount, magnitude)
	}
	if kind.Negative() {
		return magnitude.Neg(), nil
	}
	return magnitude, nil
}

// NormalizeDescription trims free-text descriptions before storage.
func NormalizeDescription(s string) string {
	return strings.TrimSpace(s)
}
