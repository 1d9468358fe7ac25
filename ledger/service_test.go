package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/ledger"
	memstore "github.com/warp/payroll-engine/ledger/store"
)

// allowKinds authorizes only the listed kinds, regardless of actor.
type allowKinds map[ledger.Kind]bool

func (a allowKinds) CanAuthorizeTransaction(_ context.Context, _ string, kind ledger.Kind) bool {
	return a[kind]
}

func TestService_RecordTransaction(t *testing.T) {
	// GIVEN a wallet with balance 50 (bonus)
	// WHEN a penalty magnitude of 20 is recorded
	// THEN balance is 30 and the entry is signed negative
	ctx := context.Background()
	st := memstore.NewMemory()
	svc := ledger.NewService(st, nil, nil, nil)

	w, err := svc.CreateWallet(ctx, "u-1", dec("300"))
	require.NoError(t, err)

	_, _, err = svc.RecordTransaction(ctx, w.ID, ledger.KindBonus, dec("50"), "signing bonus", "admin-1")
	require.NoError(t, err)

	tx, updated, err := svc.RecordTransaction(ctx, w.ID, ledger.KindPenalty, dec("20"), "late arrival", "mgr-1")
	require.NoError(t, err)

	assert.True(t, tx.Amount.Equal(dec("-20")))
	assert.Equal(t, "mgr-1", tx.CreatedBy)
	assert.True(t, updated.CurrentBalance.Equal(dec("30")))
	requireReconciled(t, st, w.ID)
}

func TestService_RecordTransaction_Unauthorized(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewMemory()
	svc := ledger.NewService(st, allowKinds{ledger.KindBonus: true}, nil, nil)

	w, err := svc.CreateWallet(ctx, "u-1", dec("300"))
	require.NoError(t, err)

	_, _, err = svc.RecordTransaction(ctx, w.ID, ledger.KindAdvance, dec("100"), "", "mgr-1")
	assert.ErrorIs(t, err, ledger.ErrNotAuthorized)

	// Validation runs before authorization: a bad kind is a 400-class
	// error even for an actor who could not authorize it.
	_, _, err = svc.RecordTransaction(ctx, w.ID, ledger.KindDailyCredit, dec("10"), "", "mgr-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidKind)

	// Nothing was committed.
	txs, err := svc.GetHistory(ctx, w.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestService_GetHistory(t *testing.T) {
	// History comes back newest first and honors the limit.
	ctx := context.Background()
	st := memstore.NewMemory()
	svc := ledger.NewService(st, nil, nil, nil)

	w, err := svc.CreateWallet(ctx, "u-1", dec("300"))
	require.NoError(t, err)

	for _, m := range []string{"1", "2", "3"} {
		_, _, err = svc.RecordTransaction(ctx, w.ID, ledger.KindBonus, dec(m), "", "admin-1")
		require.NoError(t, err)
	}

	txs, err := svc.GetHistory(ctx, w.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[0].Amount.Equal(dec("3")))
	assert.True(t, txs[2].Amount.Equal(dec("1")))

	limited, err := svc.GetHistory(ctx, w.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.True(t, limited[0].Amount.Equal(dec("3")))
}

func TestService_GetHistory_UnknownWallet(t *testing.T) {
	st := memstore.NewMemory()
	svc := ledger.NewService(st, nil, nil, nil)

	_, err := svc.GetHistory(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, ledger.ErrWalletNotFound)
}

func TestService_DisplayName(t *testing.T) {
	ctx := context.Background()
	st := memstore.NewMemory()
	require.NoError(t, st.SaveUser(ctx, ledger.User{ID: "u-1", Name: "Dana", Role: "manager"}))

	svc := ledger.NewService(st, nil, ledger.StoreDirectory{Users: st}, nil)
	assert.Equal(t, "Dana", svc.DisplayName(ctx, "u-1"))
	assert.Equal(t, "ghost", svc.DisplayName(ctx, "ghost"), "unknown users fall back to the raw id")

	bare := ledger.NewService(memstore.NewMemory(), nil, nil, nil)
	assert.Equal(t, "u-1", bare.DisplayName(ctx, "u-1"), "nil directory falls back to the raw id")
}

func TestService_EndToEndAdvanceLifecycle(t *testing.T) {
	// Advance of 100 on a 300 salary: the wallet nets +100 immediately,
	// then ten accrual days recover it in full while paying the salary.
	ctx := context.Background()
	st := memstore.NewMemory()
	svc := ledger.NewService(st, nil, nil, nil)

	w, err := svc.CreateWallet(ctx, "u-1", dec("300"))
	require.NoError(t, err)

	_, _, err = svc.RecordTransaction(ctx, w.ID, ledger.KindAdvance, dec("100"), "emergency", "admin-1")
	require.NoError(t, err)

	date := ledger.NewDate(2026, 8, 1)
	for i := 0; i < 10; i++ {
		_, err = svc.RunDailyAccrual(ctx, date.AddDays(i))
		require.NoError(t, err)
	}

	after, err := svc.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, after.AdvanceBalance.IsZero(), "100 at 10/day drains in exactly 10 days")
	// 100 advance + 10*10 credited - 100 recovered = 100.
	assert.True(t, after.CurrentBalance.Equal(dec("100")), "got %s", after.CurrentBalance)
	requireReconciled(t, st, w.ID)
}
