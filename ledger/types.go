/*
Package ledger implements the payroll wallet engine.

PURPOSE:
  This package contains the types and algorithms for per-user payroll
  wallets: a spendable balance, a daily salary accrual, cash advances with
  automatic recovery, and an append-only transaction history.

KEY CONCEPTS IN THIS FILE (types.go):
  - Wallet: Materialized per-user state (balance, salary, advance liability)
  - Transaction: An immutable ledger entry recording one balance change
  - Kind: Transaction type; the sign of an entry is derived from its kind

DESIGN PRINCIPLES:
  1. Single writer: Only the Applier mutates Wallet numeric fields
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Reconciliation: current_balance always equals the sum of the wallet's
     transaction amounts - the materialized balance is a cache, not a
     second source of truth
  4. Auditability: Every balance change is one immutable Transaction row

SEE ALSO:
  - applier.go: The single mutation path
  - accrual.go: The idempotent daily batch
  - store.go: Persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WalletID string
type TransactionID string
type UserID string

// =============================================================================
// TRANSACTION KIND - Direction is derived from kind, never supplied
// =============================================================================

type Kind string

const (
	KindDailyCredit      Kind = "daily_credit"      // System: daily salary accrual
	KindPenalty          Kind = "penalty"           // Manual: deduction (negative)
	KindAdvance          Kind = "advance"           // Manual: cash disbursed now, recovered from future accruals
	KindAdvanceDeduction Kind = "advance_deduction" // System: recovery withheld from a day's accrual
	KindBonus            Kind = "bonus"             // Manual: one-off credit
	KindAdjustment       Kind = "adjustment"        // Manual: admin correction (positive)
)

// Manual reports whether the kind may be submitted through RecordTransaction.
// daily_credit and advance_deduction are system-only.
func (k Kind) Manual() bool {
	switch k {
	case KindPenalty, KindAdvance, KindBonus, KindAdjustment:
		return true
	}
	return false
}

// Negative reports whether a manual magnitude of this kind debits the wallet.
func (k Kind) Negative() bool { return k == KindPenalty }

func (k Kind) Valid() bool {
	switch k {
	case KindDailyCredit, KindPenalty, KindAdvance, KindAdvanceDeduction, KindBonus, KindAdjustment:
		return true
	}
	return false
}

// =============================================================================
// WALLET - Materialized per-user payroll state
// =============================================================================

// Wallet is the materialized state of one user's payroll account.
//
// INVARIANTS:
//   - AdvanceBalance >= 0 always
//   - CurrentBalance == sum of all transaction amounts for the wallet
//   - LastAccrualDate only moves forward, at most once per calendar date
//
// Numeric fields are mutated only by the Applier. MonthlySalary is the one
// exception: it is a configuration value edited directly by Lifecycle and
// takes effect on the next accrual.
type Wallet struct {
	ID             WalletID
	UserID         UserID
	CurrentBalance decimal.Decimal
	MonthlySalary  decimal.Decimal
	AdvanceBalance decimal.Decimal

	// LastAccrualDate is nil until the first daily accrual runs.
	LastAccrualDate *Date

	// Version supports optimistic concurrency. Every committed wallet
	// update increments it; a stale version on write is a conflict.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

var daysPerMonth = decimal.NewFromInt(30)

// DailyAccrual returns the wallet's salary accrual for one calendar day:
// monthly_salary / 30, floored to the currency's minor unit so the engine
// never systematically overpays.
func (w Wallet) DailyAccrual() decimal.Decimal {
	return w.MonthlySalary.Div(daysPerMonth).RoundFloor(2)
}

// =============================================================================
// TRANSACTION - Immutable, append-only ledger entry
// =============================================================================

// Transaction records a single balance-affecting event. Once written it is
// never updated or deleted; the only destructive operation in the system is
// the administrative wallet delete, which removes the wallet together with
// its full history.
type Transaction struct {
	ID       TransactionID
	WalletID WalletID

	// Amount is signed; the sign encodes direction and is derived from
	// Kind at validation time.
	Amount decimal.Decimal

	Kind        Kind
	Description string

	// CreatedBy is the actor identity, empty for system-generated entries
	// (daily_credit, advance_deduction).
	CreatedBy string

	CreatedAt time.Time
}

// =============================================================================
// USER DIRECTORY - Presentation-only collaborator data
// =============================================================================

// User is a directory record. The engine reads it only to decorate
// responses with display identity; balance logic never consults it.
type User struct {
	ID    UserID
	Name  string
	Email string
	Role  string
}
