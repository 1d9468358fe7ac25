// Package store provides an in-memory ledger.Store implementation used by
// tests and the -db=:memory: development mode.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	wallets map[ledger.WalletID]ledger.Wallet
	byUser  map[ledger.UserID]ledger.WalletID
	txs     map[ledger.WalletID][]ledger.Transaction
	users   map[ledger.UserID]ledger.User
	runs    []ledger.AccrualRun
}

func NewMemory() *Memory {
	return &Memory{
		wallets: make(map[ledger.WalletID]ledger.Wallet),
		byUser:  make(map[ledger.UserID]ledger.WalletID),
		txs:     make(map[ledger.WalletID][]ledger.Transaction),
		users:   make(map[ledger.UserID]ledger.User),
	}
}

// cloneWallet copies the wallet so callers never share the stored
// LastAccrualDate pointer.
func cloneWallet(w ledger.Wallet) ledger.Wallet {
	if w.LastAccrualDate != nil {
		d := *w.LastAccrualDate
		w.LastAccrualDate = &d
	}
	return w
}

func (m *Memory) CreateWallet(_ context.Context, w ledger.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUser[w.UserID]; ok {
		return ledger.ErrDuplicateWallet
	}
	if _, ok := m.wallets[w.ID]; ok {
		return ledger.ErrDuplicateWallet
	}
	m.wallets[w.ID] = cloneWallet(w)
	m.byUser[w.UserID] = w.ID
	return nil
}

func (m *Memory) GetWallet(_ context.Context, id ledger.WalletID) (ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[id]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

func (m *Memory) GetWalletByUser(_ context.Context, userID ledger.UserID) (ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUser[userID]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return cloneWallet(m.wallets[id]), nil
}

func (m *Memory) ListWallets(_ context.Context) ([]ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, cloneWallet(w))
	}
	return out, nil
}

// ApplyWallet commits the new state and ledger rows iff the stored version
// still matches the version the caller read.
func (m *Memory) ApplyWallet(_ context.Context, w ledger.Wallet, txs []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.wallets[w.ID]
	if !ok {
		return ledger.ErrWalletNotFound
	}
	if current.Version != w.Version {
		return ledger.ErrConcurrentModification
	}

	next := cloneWallet(w)
	next.Version = w.Version + 1
	m.wallets[w.ID] = next
	m.txs[w.ID] = append(m.txs[w.ID], txs...)
	return nil
}

func (m *Memory) UpdateSalary(_ context.Context, id ledger.WalletID, salary decimal.Decimal) (ledger.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[id]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	w.MonthlySalary = salary
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	m.wallets[id] = w
	return cloneWallet(w), nil
}

func (m *Memory) DeleteWallet(_ context.Context, id ledger.WalletID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[id]
	if !ok {
		return ledger.ErrWalletNotFound
	}
	delete(m.wallets, id)
	delete(m.byUser, w.UserID)
	delete(m.txs, id)
	return nil
}

func (m *Memory) Transactions(_ context.Context, id ledger.WalletID, limit int) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.txs[id]
	// Newest first. Entries are appended in commit order, so reverse.
	out := make([]ledger.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		out = append(out, txs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// =============================================================================
// DIRECTORY + RUN AUDIT
// =============================================================================

func (m *Memory) SaveUser(_ context.Context, u ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id ledger.UserID) (*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *Memory) SaveAccrualRun(_ context.Context, run ledger.AccrualRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ListAccrualRuns(_ context.Context, limit int) ([]ledger.AccrualRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.AccrualRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, m.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
