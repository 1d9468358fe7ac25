/*
handlers.go - HTTP handlers for the payroll wallet engine

ENDPOINTS:
  Wallets:
    POST   /api/wallets                      Create wallet
    GET    /api/wallets/{id}                 Wallet state
    PUT    /api/wallets/{id}/salary          Update monthly salary
    DELETE /api/wallets/{id}                 Delete wallet + history
    POST   /api/wallets/{id}/transactions    Record manual transaction
    GET    /api/wallets/{id}/transactions    History, newest first (?limit=)

  Admin:
    POST   /api/admin/accrual/run            Run daily accrual (idempotent)
    GET    /api/admin/accrual/runs           Past batch runs

  Directory:
    GET    /api/users                        List directory users
    POST   /api/users                        Upsert directory user

ERROR MAPPING:
  400 invalid input - 403 not authorized - 404 wallet missing -
  409 duplicate wallet / concurrent modification (retryable) -
  503 store unavailable.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/ledger"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *ledger.Service
	Users   ledger.UserStore
	Runs    ledger.RunStore
	Cache   *Cache
	Log     logrus.FieldLogger
}

func NewHandler(service *ledger.Service, users ledger.UserStore, runs ledger.RunStore, cache *Cache, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Service: service, Users: users, Runs: runs, Cache: cache, Log: log}
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	wallet, err := h.Service.CreateWallet(r.Context(), ledger.UserID(req.UserID), req.MonthlySalary)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTO(wallet, h.Service.DisplayName(r.Context(), wallet.UserID)))
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var cached WalletDTO
	if h.Cache.Get(r.Context(), walletKey(id), &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	wallet, err := h.Service.GetWallet(r.Context(), ledger.WalletID(id))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dto := toWalletDTO(wallet, h.Service.DisplayName(r.Context(), wallet.UserID))
	h.Cache.Set(r.Context(), walletKey(id), dto)
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) UpdateSalary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateSalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	wallet, err := h.Service.UpdateSalary(r.Context(), ledger.WalletID(id), req.MonthlySalary)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Cache.InvalidateWallet(r.Context(), id)
	writeJSON(w, http.StatusOK, toWalletDTO(wallet, h.Service.DisplayName(r.Context(), wallet.UserID)))
}

func (h *Handler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.DeleteWallet(r.Context(), ledger.WalletID(id)); err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Cache.InvalidateWallet(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	actorID, _ := ActorFrom(r.Context())
	tx, wallet, err := h.Service.RecordTransaction(r.Context(),
		ledger.WalletID(id), ledger.Kind(req.Kind), req.Amount, req.Description, actorID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	h.Cache.InvalidateWallet(r.Context(), id)
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionDTO(tx),
		"wallet":      toWalletDTO(wallet, h.Service.DisplayName(r.Context(), wallet.UserID)),
	})
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = n
	}

	// Only the unbounded read is cached; limited reads are rare one-offs.
	if limit == 0 {
		var cached []TransactionDTO
		if h.Cache.Get(r.Context(), historyKey(id), &cached) {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	txs, err := h.Service.GetHistory(r.Context(), ledger.WalletID(id), limit)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = toTransactionDTO(t)
	}
	if limit == 0 {
		h.Cache.Set(r.Context(), historyKey(id), dtos)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	var req RunAccrualRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	date := ledger.Today()
	if req.Date != "" {
		var err error
		if date, err = ledger.ParseDate(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD", err)
			return
		}
	}

	results, err := h.Service.RunDailyAccrual(r.Context(), date)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	// Every credited wallet's cached state is stale now.
	for _, res := range results {
		if res.Status == ledger.StatusApplied {
			h.Cache.InvalidateWallet(r.Context(), string(res.WalletID))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    date.String(),
		"results": toWalletResultDTOs(results),
	})
}

func (h *Handler) ListAccrualRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeJSON(w, http.StatusOK, []AccrualRunDTO{})
		return
	}
	runs, err := h.Runs.ListAccrualRuns(r.Context(), 50)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]AccrualRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAccrualRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if h.Users == nil {
		writeJSON(w, http.StatusOK, []UserDTO{})
		return
	}
	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = UserDTO{ID: string(u.ID), Name: u.Name, Email: u.Email, Role: u.Role}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	if h.Users == nil {
		writeError(w, http.StatusNotImplemented, "directory not configured", nil)
		return
	}
	var req UpsertUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	u := ledger.User{ID: ledger.UserID(req.ID), Name: req.Name, Email: req.Email, Role: req.Role}
	if err := h.Users.SaveUser(r.Context(), u); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserDTO{ID: req.ID, Name: req.Name, Email: req.Email, Role: req.Role})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps engine errors onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "wallet not found", err)
	case errors.Is(err, ledger.ErrDuplicateWallet):
		writeError(w, http.StatusConflict, "wallet already exists for user", err)
	case ledger.IsRetryable(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "concurrent modification, retry the request",
			Detail:    err.Error(),
			Retryable: true,
		})
	case errors.Is(err, ledger.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not authorized for this transaction kind", err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, ledger.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
