/*
accrual.go - Idempotent daily accrual batch

PURPOSE:
  Once per calendar date, credit every wallet with monthly_salary/30 and
  withhold any advance recovery, through the Applier's atomic boundary.

IDEMPOTENCY:
  A wallet whose LastAccrualDate is the requested date (or later) is
  skipped. The Applier re-checks the guard inside the atomic unit, so
  re-running the batch for a date - operator retry, double-fired scheduler,
  two instances racing - never double-credits a wallet.

FAILURE ISOLATION:
  Wallets are independent. A store failure on one wallet is captured in
  that wallet's result and the run continues; the caller gets a per-wallet
  result list, never an all-or-nothing error.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// RESULTS
// =============================================================================

type RunStatus string

const (
	StatusApplied RunStatus = "applied" // credited (and recovered, if an advance was outstanding)
	StatusSkipped RunStatus = "skipped" // already accrued for this date
	StatusFailed  RunStatus = "failed"  // error captured in Err, other wallets unaffected
)

// WalletResult is one wallet's outcome for a batch run.
type WalletResult struct {
	WalletID  WalletID
	UserID    UserID
	Status    RunStatus
	Credited  decimal.Decimal
	Recovered decimal.Decimal
	Err       string
}

// AccrualRun is the audit record of one batch invocation.
type AccrualRun struct {
	ID          string
	Date        Date
	Applied     int
	Skipped     int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
}

// =============================================================================
// BATCH
// =============================================================================

// AccrualBatch runs the daily accrual over all wallets.
type AccrualBatch struct {
	store    Store
	applier  *Applier
	recovery RecoveryPolicy
	log      logrus.FieldLogger
}

func NewAccrualBatch(store Store, applier *Applier, recovery RecoveryPolicy, log logrus.FieldLogger) *AccrualBatch {
	if recovery == nil {
		recovery = FullAccrualRecovery{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AccrualBatch{store: store, applier: applier, recovery: recovery, log: log}
}

// Run processes every wallet for the given date and returns per-wallet
// results. Only listing the wallets can fail outright; everything after
// that is captured per wallet.
func (b *AccrualBatch) Run(ctx context.Context, date Date) ([]WalletResult, error) {
	started := time.Now().UTC()
	wallets, err := b.store.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing wallets: %v", ErrStoreUnavailable, err)
	}

	results := make([]WalletResult, 0, len(wallets))
	for _, w := range wallets {
		results = append(results, b.runWallet(ctx, w, date))
	}

	// Audit record; best-effort, the run itself already committed.
	if rs, ok := b.store.(RunStore); ok {
		run := summarize(results, date, started)
		if err := rs.SaveAccrualRun(ctx, run); err != nil {
			b.log.WithFields(logrus.Fields{"date": date.String(), "error": err}).
				Warn("failed to record accrual run")
		}
	}
	return results, nil
}

func (b *AccrualBatch) runWallet(ctx context.Context, w Wallet, date Date) WalletResult {
	res := WalletResult{
		WalletID:  w.ID,
		UserID:    w.UserID,
		Credited:  decimal.Zero,
		Recovered: decimal.Zero,
	}

	if w.LastAccrualDate != nil && !date.After(*w.LastAccrualDate) {
		res.Status = StatusSkipped
		return res
	}

	accrual := w.DailyAccrual()
	effects := []Effect{{
		Kind:        KindDailyCredit,
		Amount:      accrual,
		Description: "daily salary accrual " + date.String(),
	}}

	recovery, _ := b.recovery.ComputeRecovery(w.AdvanceBalance, accrual)
	if recovery.IsPositive() {
		effects = append(effects, Effect{
			Kind:        KindAdvanceDeduction,
			Amount:      recovery.Neg(),
			Description: "advance recovery " + date.String(),
		})
	}

	_, _, err := b.applier.Apply(ctx, w.ID, &date, effects)
	switch {
	case err == nil:
		res.Status = StatusApplied
		res.Credited = accrual
		res.Recovered = recovery
	case errors.Is(err, ErrAccrualAlreadyRun):
		// Lost a race with another run for the same date. Equivalent to
		// the pre-check skip.
		res.Status = StatusSkipped
	default:
		res.Status = StatusFailed
		res.Err = err.Error()
		b.log.WithFields(logrus.Fields{
			"wallet_id": w.ID,
			"user_id":   w.UserID,
			"date":      date.String(),
			"error":     err,
		}).Error("daily accrual failed for wallet")
	}
	return res
}

func summarize(results []WalletResult, date Date, started time.Time) AccrualRun {
	run := AccrualRun{
		ID:          uuid.NewString(),
		Date:        date,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
	for _, r := range results {
		switch r.Status {
		case StatusApplied:
			run.Applied++
		case StatusSkipped:
			run.Skipped++
		case StatusFailed:
			run.Failed++
		}
	}
	return run
}
