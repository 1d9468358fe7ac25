package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/payroll-engine/ledger"
)

func TestFullAccrualRecovery_ComputeRecovery(t *testing.T) {
	policy := ledger.FullAccrualRecovery{}

	cases := []struct {
		name          string
		advance       string
		accrual       string
		wantRecovery  string
		wantRemaining string
	}{
		{"advance exceeds accrual", "100", "10", "10", "90"},
		{"advance below accrual", "7", "10", "7", "0"},
		{"advance equals accrual", "10", "10", "10", "0"},
		{"no advance outstanding", "0", "10", "0", "0"},
		{"zero accrual recovers nothing", "100", "0", "0", "100"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recovery, remaining := policy.ComputeRecovery(
				decimal.RequireFromString(tc.advance),
				decimal.RequireFromString(tc.accrual),
			)
			assert.True(t, recovery.Equal(decimal.RequireFromString(tc.wantRecovery)),
				"recovery: want %s, got %s", tc.wantRecovery, recovery)
			assert.True(t, remaining.Equal(decimal.RequireFromString(tc.wantRemaining)),
				"remaining: want %s, got %s", tc.wantRemaining, remaining)
		})
	}
}

func TestFullAccrualRecovery_DrainsInCeilDays(t *testing.T) {
	// GIVEN an advance of 25 against a daily accrual of 10
	// WHEN recovery is applied day after day
	// THEN the advance reaches exactly zero after ceil(25/10) = 3 days and
	// never goes negative.
	policy := ledger.FullAccrualRecovery{}
	advance := decimal.NewFromInt(25)
	accrual := decimal.NewFromInt(10)

	days := 0
	for advance.IsPositive() {
		recovery, remaining := policy.ComputeRecovery(advance, accrual)
		assert.True(t, recovery.IsPositive())
		assert.False(t, remaining.IsNegative(), "advance must never underflow")
		advance = remaining
		days++
	}
	assert.Equal(t, 3, days)
	assert.True(t, advance.IsZero())
}
