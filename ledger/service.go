/*
service.go - Engine facade

PURPOSE:
  Ties the validator, applier, recovery policy, batch, and lifecycle into
  the request/response surface consumed by the API layer and the scheduler.

COLLABORATORS:
  Two capabilities are injected rather than reached for globally:
  - Authorizer: asked before any manual transaction is accepted. Role
    policy lives outside the engine.
  - Directory: user id -> display identity, used only when decorating
    responses. Balance logic never consults it.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Authorizer decides whether an actor may record a given transaction kind.
type Authorizer interface {
	CanAuthorizeTransaction(ctx context.Context, actorID string, kind Kind) bool
}

// Directory resolves user ids to display identity. Presentation only.
type Directory interface {
	Lookup(ctx context.Context, id UserID) (*User, error)
}

// StoreDirectory adapts a UserStore into a Directory.
type StoreDirectory struct {
	Users UserStore
}

func (d StoreDirectory) Lookup(ctx context.Context, id UserID) (*User, error) {
	return d.Users.GetUser(ctx, id)
}

// Service is the engine's public API.
type Service struct {
	store     Store
	applier   *Applier
	batch     *AccrualBatch
	lifecycle *Lifecycle
	auth      Authorizer
	dir       Directory
	log       logrus.FieldLogger
}

// NewService wires the engine around a store. auth and dir may be nil: a
// nil Authorizer permits everything (useful in tests and trusted internal
// callers), a nil Directory disables identity decoration.
func NewService(store Store, auth Authorizer, dir Directory, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	applier := NewApplier(store)
	return &Service{
		store:     store,
		applier:   applier,
		batch:     NewAccrualBatch(store, applier, FullAccrualRecovery{}, log),
		lifecycle: NewLifecycle(store),
		auth:      auth,
		dir:       dir,
		log:       log,
	}
}

// CreateWallet opens a wallet for the user with the given monthly salary.
func (s *Service) CreateWallet(ctx context.Context, userID UserID, monthlySalary decimal.Decimal) (Wallet, error) {
	return s.lifecycle.Create(ctx, userID, monthlySalary)
}

// UpdateSalary changes a wallet's monthly salary; effective next accrual.
func (s *Service) UpdateSalary(ctx context.Context, id WalletID, monthlySalary decimal.Decimal) (Wallet, error) {
	return s.lifecycle.SetSalary(ctx, id, monthlySalary)
}

// DeleteWallet removes the wallet and its history atomically.
func (s *Service) DeleteWallet(ctx context.Context, id WalletID) error {
	return s.lifecycle.Delete(ctx, id)
}

// RecordTransaction validates, authorizes, and applies one manual
// transaction. The magnitude is positive; sign comes from the kind.
func (s *Service) RecordTransaction(ctx context.Context, id WalletID, kind Kind, magnitude decimal.Decimal, description, actorID string) (Transaction, Wallet, error) {
	signed, err := ValidateManual(kind, magnitude)
	if err != nil {
		return Transaction{}, Wallet{}, err
	}
	if s.auth != nil && !s.auth.CanAuthorizeTransaction(ctx, actorID, kind) {
		return Transaction{}, Wallet{}, ErrNotAuthorized
	}

	w, txs, err := s.applier.Apply(ctx, id, nil, []Effect{{
		Kind:        kind,
		Amount:      signed,
		Description: description,
		ActorID:     actorID,
	}})
	if err != nil {
		return Transaction{}, Wallet{}, err
	}
	return txs[0], w, nil
}

// RunDailyAccrual runs the batch for the date. Idempotent per wallet; safe
// to invoke repeatedly for the same date.
func (s *Service) RunDailyAccrual(ctx context.Context, date Date) ([]WalletResult, error) {
	return s.batch.Run(ctx, date)
}

// GetWallet returns current wallet state.
func (s *Service) GetWallet(ctx context.Context, id WalletID) (Wallet, error) {
	return s.store.GetWallet(ctx, id)
}

// GetHistory returns the wallet's transactions, newest first.
func (s *Service) GetHistory(ctx context.Context, id WalletID, limit int) ([]Transaction, error) {
	// Surface ErrWalletNotFound for unknown wallets instead of an empty list.
	if _, err := s.store.GetWallet(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, id, limit)
}

// DisplayName resolves a user's display identity, falling back to the raw
// id when no directory is wired or the user is unknown.
func (s *Service) DisplayName(ctx context.Context, id UserID) string {
	if s.dir == nil || id == "" {
		return string(id)
	}
	u, err := s.dir.Lookup(ctx, id)
	if err != nil || u == nil {
		return string(id)
	}
	return u.Name
}
