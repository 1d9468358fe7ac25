/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error values in one place for consistency and discoverability.
  Callers classify with errors.Is and the helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors - Bad input, terminal for the request
  2. Conflict errors   - Concurrent writers, retryable by the caller
  3. Store errors      - Persistence failures

PROPAGATION RULES:
  - Validation errors are returned unchanged and never retried internally.
  - ErrConcurrentModification is safe to retry with the same input: the
    Applier re-reads current state on every attempt.
  - ErrStoreUnavailable is caught per-wallet inside the daily batch and
    surfaced as-is for single manual transactions.
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a manual transaction magnitude is
	// zero or negative. Direction is derived from kind, never from sign.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidKind is returned when a kind is unknown or system-only
	// (daily_credit, advance_deduction cannot be submitted manually).
	ErrInvalidKind = errors.New("invalid transaction kind")

	// ErrInvalidSalary is returned when a monthly salary is negative.
	ErrInvalidSalary = errors.New("invalid salary")

	// ErrWalletNotFound is returned when the referenced wallet doesn't exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrDuplicateWallet is returned when the user already has a wallet.
	ErrDuplicateWallet = errors.New("wallet already exists for user")

	// ErrConcurrentModification is returned when another writer changed the
	// wallet between read and write. Callers may retry with the same input.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrStoreUnavailable wraps persistence failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotAuthorized is returned when the actor may not record the
	// requested transaction kind.
	ErrNotAuthorized = errors.New("actor not authorized for transaction kind")

	// ErrAccrualAlreadyRun is returned when an accrual is applied for a
	// date the wallet has already accrued on (or earlier). The batch treats
	// this as a skip, not a failure.
	ErrAccrualAlreadyRun = errors.New("accrual already recorded for date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AdvanceUnderflowError reports an advance_deduction that would drive the
// advance balance negative. This is an internal invariant guard: the
// recovery policy caps deductions at the outstanding advance, so seeing
// this error means a bug or a corrupted wallet row.
type AdvanceUnderflowError struct {
	WalletID  WalletID
	Advance   decimal.Decimal
	Deduction decimal.Decimal
}

func (e *AdvanceUnderflowError) Error() string {
	return fmt.Sprintf("advance deduction %s exceeds outstanding advance %s on wallet %s",
		e.Deduction, e.Advance, e.WalletID)
}

func (e *AdvanceUnderflowError) Unwrap() error { return ErrInvalidAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidSalary) ||
		errors.Is(err, ErrDuplicateWallet)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}
