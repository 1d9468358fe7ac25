package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// WALLET LIFECYCLE - Create, salary edits, cascade delete
// =============================================================================

// Lifecycle manages wallet creation, salary configuration, and deletion.
// It never touches balances: salary edits take effect on the next accrual,
// and everything balance-related goes through the Applier.
type Lifecycle struct {
	store Store
}

func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{store: store}
}

// Create opens a wallet for the user. One wallet per user; numeric fields
// start at zero except the configured monthly salary.
func (l *Lifecycle) Create(ctx context.Context, userID UserID, monthlySalary decimal.Decimal) (Wallet, error) {
	if monthlySalary.IsNegative() {
		return Wallet{}, fmt.Errorf("%w: %s", ErrInvalidSalary, monthlySalary)
	}

	now := time.Now().UTC()
	w := Wallet{
		ID:             WalletID(uuid.NewString()),
		UserID:         userID,
		CurrentBalance: decimal.Zero,
		MonthlySalary:  monthlySalary,
		AdvanceBalance: decimal.Zero,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := l.store.CreateWallet(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// SetSalary updates the monthly salary directly. No ledger entry: the
// change only influences future accruals.
func (l *Lifecycle) SetSalary(ctx context.Context, id WalletID, monthlySalary decimal.Decimal) (Wallet, error) {
	if monthlySalary.IsNegative() {
		return Wallet{}, fmt.Errorf("%w: %s", ErrInvalidSalary, monthlySalary)
	}
	return l.store.UpdateSalary(ctx, id, monthlySalary)
}

// Delete removes the wallet and its full transaction history atomically.
// This is an explicit administrative operation, not routine bookkeeping.
func (l *Lifecycle) Delete(ctx context.Context, id WalletID) error {
	return l.store.DeleteWallet(ctx, id)
}
