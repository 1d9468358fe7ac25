/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store, ledger.UserStore, and ledger.RunStore. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  wallets:             Materialized wallet state, versioned for optimistic
                       concurrency (user_id UNIQUE)
  wallet_transactions: Append-only ledger, FK -> wallets ON DELETE CASCADE
  users:               Directory records (presentation only)
  accrual_runs:        One row per daily batch invocation

LEDGER ENFORCEMENT:
  No UPDATE statement exists for wallet_transactions. The only DELETE is
  the cascade triggered by an administrative wallet delete, which removes
  the wallet together with its entire history in one statement.

OPTIMISTIC CONCURRENCY:
  ApplyWallet updates the wallet row guarded by the version the caller
  read (WHERE id=? AND version=?) and inserts the ledger rows in the same
  database transaction. Zero rows affected with the wallet still present
  means a racing writer won: ledger.ErrConcurrentModification.

WAL MODE:
  Opened with WAL and foreign keys on: multiple readers don't block, a
  single writer at a time, better crash recovery.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/ledger"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite allows a single writer anyway, and a pooled
	// ":memory:" path would otherwise open a fresh empty database per conn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		current_balance TEXT NOT NULL,
		monthly_salary TEXT NOT NULL,
		advance_balance TEXT NOT NULL,
		last_accrual_date TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Append-only ledger. Cascade delete is the wallet-removal path only.
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- History reads are newest-first per wallet (hot path).
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_wallet_created
		ON wallet_transactions(wallet_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_kind
		ON wallet_transactions(kind);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accrual_runs (
		id TEXT PRIMARY KEY,
		run_date TEXT NOT NULL,
		applied INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accrual_runs_date
		ON accrual_runs(run_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// =============================================================================
// WALLETS
// =============================================================================

func (s *Store) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, current_balance, monthly_salary, advance_balance,
			last_accrual_date, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(w.ID), string(w.UserID),
		w.CurrentBalance.String(), w.MonthlySalary.String(), w.AdvanceBalance.String(),
		dateOrNull(w.LastAccrualDate), w.Version,
		w.CreatedAt.UTC().Format(time.RFC3339Nano), w.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateWallet
		}
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) GetWallet(ctx context.Context, id ledger.WalletID) (ledger.Wallet, error) {
	row := s.db.QueryRowContext(ctx, walletSelect+` WHERE id = ?`, string(id))
	return scanWallet(row)
}

func (s *Store) GetWalletByUser(ctx context.Context, userID ledger.UserID) (ledger.Wallet, error) {
	row := s.db.QueryRowContext(ctx, walletSelect+` WHERE user_id = ?`, string(userID))
	return scanWallet(row)
}

func (s *Store) ListWallets(ctx context.Context) ([]ledger.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, walletSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []ledger.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) ApplyWallet(ctx context.Context, w ledger.Wallet, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `
		UPDATE wallets
		SET current_balance = ?, advance_balance = ?, last_accrual_date = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		w.CurrentBalance.String(), w.AdvanceBalance.String(), dateOrNull(w.LastAccrualDate),
		w.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(w.ID), w.Version)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		// Either the wallet is gone or another writer bumped the version.
		var exists int
		if err := dbTx.QueryRowContext(ctx, `SELECT COUNT(1) FROM wallets WHERE id = ?`, string(w.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
		}
		if exists == 0 {
			return ledger.ErrWalletNotFound
		}
		return ledger.ErrConcurrentModification
	}

	for _, t := range txs {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (id, wallet_id, amount, kind, description, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(t.ID), string(t.WalletID), t.Amount.String(), string(t.Kind),
			t.Description, t.CreatedBy, t.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) UpdateSalary(ctx context.Context, id ledger.WalletID, salary decimal.Decimal) (ledger.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE wallets SET monthly_salary = ?, version = version + 1, updated_at = ?
		WHERE id = ?`,
		salary.String(), time.Now().UTC().Format(time.RFC3339Nano), string(id))
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return s.GetWallet(ctx, id)
}

func (s *Store) DeleteWallet(ctx context.Context, id ledger.WalletID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Single statement; the FK cascade removes the full history atomically.
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ledger.ErrWalletNotFound
	}
	return nil
}

func (s *Store) Transactions(ctx context.Context, id ledger.WalletID, limit int) ([]ledger.Transaction, error) {
	query := `
		SELECT id, wallet_id, amount, kind, description, created_by, created_at
		FROM wallet_transactions WHERE wallet_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{string(id)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		var txID, walletID, amount, kind, createdAt string
		if err := rows.Scan(&txID, &walletID, &amount, &kind, &t.Description, &t.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
		}
		t.ID = ledger.TransactionID(txID)
		t.WalletID = ledger.WalletID(walletID)
		t.Kind = ledger.Kind(kind)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount on transaction %s: %w", txID, err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt timestamp on transaction %s: %w", txID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

const walletSelect = `
	SELECT id, user_id, current_balance, monthly_salary, advance_balance,
		last_accrual_date, version, created_at, updated_at
	FROM wallets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (ledger.Wallet, error) {
	var w ledger.Wallet
	var id, userID, balance, salary, advance, createdAt, updatedAt string
	var accrualDate sql.NullString

	err := row.Scan(&id, &userID, &balance, &salary, &advance, &accrualDate, &w.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}

	w.ID = ledger.WalletID(id)
	w.UserID = ledger.UserID(userID)
	if w.CurrentBalance, err = decimal.NewFromString(balance); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt balance on wallet %s: %w", id, err)
	}
	if w.MonthlySalary, err = decimal.NewFromString(salary); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt salary on wallet %s: %w", id, err)
	}
	if w.AdvanceBalance, err = decimal.NewFromString(advance); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt advance on wallet %s: %w", id, err)
	}
	if accrualDate.Valid && accrualDate.String != "" {
		d, err := ledger.ParseDate(accrualDate.String)
		if err != nil {
			return ledger.Wallet{}, fmt.Errorf("corrupt accrual date on wallet %s: %w", id, err)
		}
		w.LastAccrualDate = &d
	}
	if w.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt created_at on wallet %s: %w", id, err)
	}
	if w.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt updated_at on wallet %s: %w", id, err)
	}
	return w, nil
}

func dateOrNull(d *ledger.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// =============================================================================
// USERS (directory)
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, role = excluded.role`,
		string(u.ID), u.Name, u.Email, u.Role, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id ledger.UserID) (*ledger.User, error) {
	var u ledger.User
	var uid string
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, role FROM users WHERE id = ?`, string(id)).
		Scan(&uid, &u.Name, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	u.ID = ledger.UserID(uid)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]ledger.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, role FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []ledger.User
	for rows.Next() {
		var u ledger.User
		var uid string
		if err := rows.Scan(&uid, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
		}
		u.ID = ledger.UserID(uid)
		out = append(out, u)
	}
	return out, rows.Err()
}

// =============================================================================
// ACCRUAL RUN AUDIT
// =============================================================================

func (s *Store) SaveAccrualRun(ctx context.Context, run ledger.AccrualRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accrual_runs (id, run_date, applied, skipped, failed, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Date.String(), run.Applied, run.Skipped, run.Failed,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.CompletedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) ListAccrualRuns(ctx context.Context, limit int) ([]ledger.AccrualRun, error) {
	query := `
		SELECT id, run_date, applied, skipped, failed, started_at, completed_at
		FROM accrual_runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []ledger.AccrualRun
	for rows.Next() {
		var run ledger.AccrualRun
		var date, startedAt, completedAt string
		if err := rows.Scan(&run.ID, &date, &run.Applied, &run.Skipped, &run.Failed, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
		}
		if run.Date, err = ledger.ParseDate(date); err != nil {
			return nil, fmt.Errorf("corrupt run date on %s: %w", run.ID, err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("corrupt started_at on %s: %w", run.ID, err)
		}
		if run.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
			return nil, fmt.Errorf("corrupt completed_at on %s: %w", run.ID, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
