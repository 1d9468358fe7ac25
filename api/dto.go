/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API contract. They decouple the engine types
  from the wire format: amounts travel as decimal strings, dates as
  "2006-01-02", timestamps as RFC3339.

VALIDATION:
  Handlers parse and validate; DTOs are pure data carriers. The real
  transaction rules live in the engine's validator - the handler only
  translates malformed JSON into 400s.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/ledger"
)

// =============================================================================
// REQUESTS
// =============================================================================

type CreateWalletRequest struct {
	UserID        string          `json:"user_id"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
}

type UpdateSalaryRequest struct {
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
}

type RecordTransactionRequest struct {
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"` // positive magnitude; sign derives from kind
	Description string          `json:"description,omitempty"`
}

type RunAccrualRequest struct {
	Date string `json:"date,omitempty"` // "2006-01-02"; empty = today (UTC)
}

type UpsertUserRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type WalletDTO struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name,omitempty"`
	CurrentBalance  string `json:"current_balance"`
	MonthlySalary   string `json:"monthly_salary"`
	AdvanceBalance  string `json:"advance_balance"`
	DailyAccrual    string `json:"daily_accrual"`
	LastAccrualDate string `json:"last_accrual_date,omitempty"`
	Version         int64  `json:"version"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type TransactionDTO struct {
	ID          string `json:"id"`
	WalletID    string `json:"wallet_id"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type WalletResultDTO struct {
	WalletID  string `json:"wallet_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	Credited  string `json:"credited"`
	Recovered string `json:"recovered"`
	Error     string `json:"error,omitempty"`
}

type AccrualRunDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Applied     int    `json:"applied"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toWalletDTO(w ledger.Wallet, userName string) WalletDTO {
	dto := WalletDTO{
		ID:             string(w.ID),
		UserID:         string(w.UserID),
		UserName:       userName,
		CurrentBalance: w.CurrentBalance.String(),
		MonthlySalary:  w.MonthlySalary.String(),
		AdvanceBalance: w.AdvanceBalance.String(),
		DailyAccrual:   w.DailyAccrual().String(),
		Version:        w.Version,
		CreatedAt:      w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      w.UpdatedAt.Format(time.RFC3339),
	}
	if w.LastAccrualDate != nil {
		dto.LastAccrualDate = w.LastAccrualDate.String()
	}
	return dto
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(t.ID),
		WalletID:    string(t.WalletID),
		Amount:      t.Amount.String(),
		Kind:        string(t.Kind),
		Description: t.Description,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toWalletResultDTOs(results []ledger.WalletResult) []WalletResultDTO {
	dtos := make([]WalletResultDTO, len(results))
	for i, r := range results {
		dtos[i] = WalletResultDTO{
			WalletID:  string(r.WalletID),
			UserID:    string(r.UserID),
			Status:    string(r.Status),
			Credited:  r.Credited.String(),
			Recovered: r.Recovered.String(),
			Error:     r.Err,
		}
	}
	return dtos
}

func toAccrualRunDTO(run ledger.AccrualRun) AccrualRunDTO {
	return AccrualRunDTO{
		ID:          run.ID,
		Date:        run.Date.String(),
		Applied:     run.Applied,
		Skipped:     run.Skipped,
		Failed:      run.Failed,
		StartedAt:   run.StartedAt.Format(time.RFC3339),
		CompletedAt: run.CompletedAt.Format(time.RFC3339),
	}
}
