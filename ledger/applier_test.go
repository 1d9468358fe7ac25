package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/ledger"
	memstore "github.com/warp/payroll-engine/ledger/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestWallet(t *testing.T, st ledger.Store, userID string, salary string) ledger.Wallet {
	t.Helper()
	w, err := ledger.NewLifecycle(st).Create(context.Background(), ledger.UserID(userID), dec(salary))
	require.NoError(t, err)
	return w
}

// requireReconciled asserts the materialized balance equals the sum of the
// wallet's ledger amounts.
func requireReconciled(t *testing.T, st ledger.Store, id ledger.WalletID) {
	t.Helper()
	ctx := context.Background()

	w, err := st.GetWallet(ctx, id)
	require.NoError(t, err)
	txs, err := st.Transactions(ctx, id, 0)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	require.True(t, w.CurrentBalance.Equal(sum),
		"balance %s does not reconcile with ledger sum %s", w.CurrentBalance, sum)
}

func TestApplier_PenaltyDebitsBalance(t *testing.T) {
	// GIVEN a wallet with balance 50
	// WHEN a penalty of 20 is applied
	// THEN balance is 30 and the ledger entry carries amount -20
	ctx := context.Background()
	st := memstore.NewMemory()
	applier := ledger.NewApplier(st)
	w := newTestWallet(t, st, "u-1", "300")

	_, _, err := applier.Apply(ctx, w.ID, nil, []ledger.Effect{
		{Kind: ledger.KindBonus, Amount: dec("50"), Description: "signing bonus"},
	})
	require.NoError(t, err)

	updated, txs, err := applier.Apply(ctx, w.ID, nil, []ledger.Effect{
		{Kind: ledger.KindPenalty, Amount: dec("-20"), Description: "late arrival", ActorID: "mgr-1"},
	})
	require.NoError(t, err)

	assert.True(t, updated.CurrentBalance.Equal(dec("30")))
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.KindPenalty, txs[0].Kind)
	assert.True(t, txs[0].Amount.Equal(dec("-20")))
	assert.Equal(t, "mgr-1", txs[0].CreatedBy)
	requireReconciled(t, st, w.ID)
}

func TestApplier_AdvanceCreditsBalanceAndLiability(t *testing.T) {
	// GIVEN a fresh wallet
	// WHEN an advance of 100 is applied
	// THEN balance is +100 and the advance liability is 100
	ctx := context.Background()
	st := memstore.NewMemory()
	applier := ledger.NewApplier(st)
	w := newTestWallet(t, st, "u-1", "300")

	updated, txs, err := applier.Apply(ctx, w.ID, nil, []ledger.Effect{
		{Kind: ledger.KindAdvance, Amount: dec("100"), Description: "cash advance"},
	})
	require.NoError(t, err)

	assert.True(t, updated.CurrentBalance.Equal(dec("100")))
	assert.True(t, updated.AdvanceBalance.Equal(dec("100")))
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(dec("100")))
	requireReconciled(t, st, w.ID)
}

func TestApplier_AdvanceDeductionCannotUnderflow(t *testing.T) {
	// GIVEN a wallet with an advance liability of 5
	// WHEN a deduction of 10 is applied
	// THEN the whole application is rejected and nothing is committed
	ctx := context.Background()
	st := memstore.NewMemory()
	applier := ledger.NewApplier(st)
	w := newTestWallet(t, st, "u-1", "300")

	_, _, err := applier.Apply(ctx, w.ID, nil, []ledger.Effect{
		{Kind: ledger.KindAdvance, Amount: dec("5")},
	})
	require.NoError(t, err)

	_, _, err = applier.Apply(ctx, w.ID, nil, []ledger.Effect{
		{Kind: ledger.KindAdvanceDeduction, Amount: dec("-10")},
	})
	require.Error(t, err)
	var underflow *ledger.AdvanceUnderflowError
	assert.ErrorAs(t, err, &underflow)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	after, err := st.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, after.AdvanceBalance.Equal(dec("5")), "failed application must not commit")
	requireReconciled(t, st, w.ID)
}

func TestApplier_RejectsEmptyAndInvalidEffects(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewMemory()
	applier := ledger.NewApplier(st)
	w := newTestWallet(t, st, "u-1", "300")

	_, _, err := applier.Apply(ctx, w.ID, nil, nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, _, err = applier.Apply(ctx, w.ID, nil, []ledger.Effect{
		{Kind: ledger.Kind("transfer"), Amount: dec("1")},
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidKind)
}

func TestApplier_UnknownWallet(t *testing.T) {
	st := memstore.NewMemory()
	applier := ledger.NewApplier(st)

	_, _, err := applier.Apply(context.Background(), "missing", nil, []ledger.Effect{
		{Kind: ledger.KindBonus, Amount: dec("1")},
	})
	assert.ErrorIs(t, err, ledger.ErrWalletNotFound)
	assert.True(t, ledger.IsNotFound(err))
}

// racingStore simulates a concurrent writer sneaking in between the
// applier's read and its commit.
type racingStore struct {
	*memstore.Memory
	raced bool
}

func (r *racingStore) GetWallet(ctx context.Context, id ledger.WalletID) (ledger.Wallet, error) {
	w, err := r.Memory.GetWallet(ctx, id)
	if err == nil && !r.raced {
		r.raced = true
		if _, uerr := r.Memory.UpdateSalary(ctx, id, w.MonthlySalary); uerr != nil {
			return ledger.Wallet{}, uerr
		}
	}
	return w, err
}

func TestApplier_ConcurrentModificationIsRetryable(t *testing.T) {
	// GIVEN a writer that commits between our read and our write
	// WHEN the application is attempted
	// THEN it fails with a retryable conflict, and a plain retry succeeds
	ctx := context.Background()
	st := &racingStore{Memory: memstore.NewMemory()}
	applier := ledger.NewApplier(st)
	w := newTestWallet(t, st, "u-1", "300")

	effects := []ledger.Effect{{Kind: ledger.KindBonus, Amount: dec("10")}}

	_, _, err := applier.Apply(ctx, w.ID, nil, effects)
	require.ErrorIs(t, err, ledger.ErrConcurrentModification)
	assert.True(t, ledger.IsRetryable(err))

	updated, _, err := applier.Apply(ctx, w.ID, nil, effects)
	require.NoError(t, err)
	assert.True(t, updated.CurrentBalance.Equal(dec("10")))
	requireReconciled(t, st, w.ID)
}

func TestApplier_MultiEffectApplicationIsAtomicRows(t *testing.T) {
	// A batch day with an outstanding advance writes two rows in one unit.
	ctx := context.Background()
	st := memstore.NewMemory()
	applier := ledger.NewApplier(st)
	w := newTestWallet(t, st, "u-1", "300")

	_, _, err := applier.Apply(ctx, w.ID, nil, []ledger.Effect{
		{Kind: ledger.KindAdvance, Amount: dec("100")},
	})
	require.NoError(t, err)

	date := ledger.NewDate(2026, 8, 29)
	updated, txs, err := applier.Apply(ctx, w.ID, &date, []ledger.Effect{
		{Kind: ledger.KindDailyCredit, Amount: dec("10")},
		{Kind: ledger.KindAdvanceDeduction, Amount: dec("-10")},
	})
	require.NoError(t, err)

	require.Len(t, txs, 2)
	assert.True(t, updated.CurrentBalance.Equal(dec("100")), "credit and recovery net to zero")
	assert.True(t, updated.AdvanceBalance.Equal(dec("90")))
	require.NotNil(t, updated.LastAccrualDate)
	assert.True(t, updated.LastAccrualDate.Equal(date))
	requireReconciled(t, st, w.ID)
}

func TestApplier_AccrualDateGuard(t *testing.T) {
	// GIVEN a wallet that already accrued for a date
	// WHEN the same date is applied again
	// THEN the application is refused inside the atomic boundary
	ctx := context.Background()
	st := memstore.NewMemory()
	applier := ledger.NewApplier(st)
	w := newTestWallet(t, st, "u-1", "300")

	date := ledger.NewDate(2026, 8, 29)
	credit := []ledger.Effect{{Kind: ledger.KindDailyCredit, Amount: dec("10")}}

	_, _, err := applier.Apply(ctx, w.ID, &date, credit)
	require.NoError(t, err)

	_, _, err = applier.Apply(ctx, w.ID, &date, credit)
	assert.ErrorIs(t, err, ledger.ErrAccrualAlreadyRun)

	earlier := date.AddDays(-1)
	_, _, err = applier.Apply(ctx, w.ID, &earlier, credit)
	assert.ErrorIs(t, err, ledger.ErrAccrualAlreadyRun, "dates never move backwards")

	next := date.AddDays(1)
	updated, _, err := applier.Apply(ctx, w.ID, &next, credit)
	require.NoError(t, err)
	assert.True(t, updated.LastAccrualDate.Equal(next))
}
