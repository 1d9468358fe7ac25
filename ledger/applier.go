/*
applier.go - The single mutation path for wallet balances

PURPOSE:
  Combines one or more validated effects with a wallet's current state and
  commits the next state plus the corresponding ledger rows as one atomic
  unit. Nothing else in the system writes CurrentBalance, AdvanceBalance,
  or LastAccrualDate.

ATOMICITY:
  Read current wallet -> fold effects -> ApplyWallet(state, rows). The
  store commits all-or-nothing under the wallet's version, so a ledger row
  can never exist without its balance effect, and vice versa. A concurrent
  writer surfaces as ErrConcurrentModification; the caller re-invokes and
  the Applier re-reads fresh state, which makes retries safe.

ADVANCE BOOKKEEPING:
  - advance:            cash out now; AdvanceBalance += amount
  - advance_deduction:  recovery withheld; AdvanceBalance -= |amount|
  Both also hit CurrentBalance like every other kind, which preserves the
  reconciliation identity (balance == sum of ledger amounts).

ACCRUAL GUARD:
  Effects carrying an accrual date are refused unless the date is strictly
  after LastAccrualDate. The check runs on the state inside the atomic
  boundary, so two racing batch runs for the same date cannot both commit.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Effect is one validated balance change about to be applied. Amount is
// already signed (see ValidateManual; the batch signs system effects).
type Effect struct {
	Kind        Kind
	Amount      decimal.Decimal
	Description string
	ActorID     string
}

// Applier is the only component permitted to mutate wallet numeric state.
type Applier struct {
	store Store
}

func NewApplier(store Store) *Applier {
	return &Applier{store: store}
}

// Apply atomically applies effects to the wallet and returns the new state
// with the ledger rows that were written.
//
// accrualDate, when non-nil, marks this application as the daily accrual
// for that date: LastAccrualDate advances to it on commit, and
// ErrAccrualAlreadyRun is returned if the wallet has already accrued on
// that date or later (idempotency, invariant I3).
//
// Errors: ErrWalletNotFound is terminal. ErrConcurrentModification means a
// racing writer won; the caller may retry with the same input.
func (a *Applier) Apply(ctx context.Context, walletID WalletID, accrualDate *Date, effects []Effect) (Wallet, []Transaction, error) {
	if len(effects) == 0 {
		return Wallet{}, nil, fmt.Errorf("%w: no effects", ErrInvalidAmount)
	}

	w, err := a.store.GetWallet(ctx, walletID)
	if err != nil {
		return Wallet{}, nil, err
	}

	if accrualDate != nil && w.LastAccrualDate != nil && !accrualDate.After(*w.LastAccrualDate) {
		return Wallet{}, nil, fmt.Errorf("%w: wallet %s last accrued %s, requested %s",
			ErrAccrualAlreadyRun, w.ID, w.LastAccrualDate, accrualDate)
	}

	now := time.Now().UTC()
	txs := make([]Transaction, 0, len(effects))

	for _, e := range effects {
		if !e.Kind.Valid() {
			return Wallet{}, nil, fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
		}

		switch e.Kind {
		case KindAdvance:
			w.AdvanceBalance = w.AdvanceBalance.Add(e.Amount)
		case KindAdvanceDeduction:
			// e.Amount is negative; the deduction magnitude is its
			// absolute value.
			next := w.AdvanceBalance.Add(e.Amount)
			if next.IsNegative() {
				return Wallet{}, nil, &AdvanceUnderflowError{
					WalletID:  w.ID,
					Advance:   w.AdvanceBalance,
					Deduction: e.Amount.Neg(),
				}
			}
			w.AdvanceBalance = next
		}

		w.CurrentBalance = w.CurrentBalance.Add(e.Amount)

		txs = append(txs, Transaction{
			ID:          TransactionID(uuid.NewString()),
			WalletID:    w.ID,
			Amount:      e.Amount,
			Kind:        e.Kind,
			Description: NormalizeDescription(e.Description),
			CreatedBy:   e.ActorID,
			CreatedAt:   now,
		})
	}

	if accrualDate != nil {
		d := *accrualDate
		w.LastAccrualDate = &d
	}
	w.UpdatedAt = now

	if err := a.store.ApplyWallet(ctx, w, txs); err != nil {
		return Wallet{}, nil, err
	}
	w.Version++
	return w, txs, nil
}
