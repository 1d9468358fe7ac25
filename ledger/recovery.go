package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// ADVANCE RECOVERY POLICY - How much of a day's accrual repays an advance
// =============================================================================

// RecoveryPolicy decides, for one accrual cycle, how much of an outstanding
// advance is withheld from the day's accrual. It is injected so the rule
// can change (e.g. a fixed percentage of salary) without touching the batch.
type RecoveryPolicy interface {
	// ComputeRecovery returns (recovery, remainingAdvance).
	// Implementations must guarantee 0 <= recovery <= advance and
	// remaining == advance - recovery, so the advance never goes negative
	// and never overshoots.
	ComputeRecovery(advance, accrual decimal.Decimal) (recovery, remaining decimal.Decimal)
}

// FullAccrualRecovery withholds min(advance, accrual) each cycle: an
// advance of A with daily accrual d is fully recovered in ceil(A/d) days,
// and a single day's recovery can never exceed that day's credit, so the
// net balance effect of accrual+recovery is always >= 0.
type FullAccrualRecovery struct{}

func (FullAccrualRecovery) ComputeRecovery(advance, accrual decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !advance.IsPositive() || !accrual.IsPositive() {
		return decimal.Zero, advance
	}
	recovery := decimal.Min(advance, accrual)
	return recovery, advance.Sub(recovery)
}
