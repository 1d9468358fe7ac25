/*
store.go - Persistence interface for wallets and the transaction ledger

PURPOSE:
  Defines the interface between the engine and the database. Different
  implementations can use SQLite or in-memory storage; production patterns
  carry over to PostgreSQL with only dialect differences.

APPEND-ONLY LEDGER CONTRACT:
  wallet_transactions rows are written once and never updated. The only
  delete is the administrative wallet cascade, which removes a wallet and
  its entire history in one atomic unit.

OPTIMISTIC CONCURRENCY:
  ApplyWallet is the atomic read-modify-write boundary. The caller passes
  the wallet state it read (including Version); the store commits the new
  state plus ledger rows only if the stored version still matches, and
  returns ErrConcurrentModification otherwise. Same-wallet writers are
  thereby serialized; different wallets never contend.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for tests and dev
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Wallet state + append-only ledger persistence
// =============================================================================

type Store interface {
	// CreateWallet persists a new wallet. Returns ErrDuplicateWallet if the
	// user already has one (user_id is unique).
	CreateWallet(ctx context.Context, w Wallet) error

	// GetWallet returns the wallet or ErrWalletNotFound.
	GetWallet(ctx context.Context, id WalletID) (Wallet, error)

	// GetWalletByUser returns the user's wallet or ErrWalletNotFound.
	GetWalletByUser(ctx context.Context, userID UserID) (Wallet, error)

	// ListWallets returns every wallet. The daily batch iterates this.
	ListWallets(ctx context.Context) ([]Wallet, error)

	// ApplyWallet atomically writes the new wallet state and appends the
	// given ledger rows. w.Version must be the version that was read; the
	// store increments it on commit. A stale version yields
	// ErrConcurrentModification and writes nothing.
	ApplyWallet(ctx context.Context, w Wallet, txs []Transaction) error

	// UpdateSalary sets monthly_salary directly (configuration change, no
	// ledger entry). Bumps the wallet version.
	UpdateSalary(ctx context.Context, id WalletID, salary decimal.Decimal) (Wallet, error)

	// DeleteWallet removes the wallet and all its transactions in one
	// atomic cascade. Returns ErrWalletNotFound if it doesn't exist.
	DeleteWallet(ctx context.Context, id WalletID) error

	// Transactions returns the wallet's ledger entries newest-first.
	// limit <= 0 returns everything.
	Transactions(ctx context.Context, id WalletID, limit int) ([]Transaction, error)
}

// =============================================================================
// EXTENDED STORES - Directory and batch audit
// =============================================================================

// UserStore persists directory records. Presentation only.
type UserStore interface {
	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id UserID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// RunStore records daily accrual batch invocations for operators.
type RunStore interface {
	SaveAccrualRun(ctx context.Context, run AccrualRun) error
	ListAccrualRuns(ctx context.Context, limit int) ([]AccrualRun, error)
}
