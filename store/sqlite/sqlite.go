/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements invoice.Store and invoice.NumberSequence using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

OPTIMISTIC CONCURRENCY:
  Every ledger row carries a version column. Updates are issued as
  UPDATE ... WHERE id = ? AND version = ?; zero affected rows means a
  concurrent writer got there first and Save fails with
  invoice.ErrConflict. The caller reloads and retries. A stale write is
  never silently applied.

APPEND-ONLY PAYMENTS:
  Payments live in their own table and are INSERT-only: no UPDATE or
  DELETE statement against the payments table exists in this package.
  Save inserts only the entries appended since the last save, preserving
  the recorded financial history verbatim.

KEY TABLES:
  ledgers:         One row per invoice ledger, items as JSON, versioned
  payments:        Immutable payment/reversal entries, ordered by seq
  invoice_numbers: Counter backing the numbering collaborator

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block and crash recovery is cheap.

USAGE:
  store, err := sqlite.New("./data/invoices.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := invoice.NewService(store, invoice.UUIDGenerator{}, store)

SEE ALSO:
  - invoice/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/invoice-engine/invoice"
)

// Store implements invoice.Store and invoice.NumberSequence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ invoice.Store          = (*Store)(nil)
	_ invoice.NumberSequence = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pool connection against ":memory:" would see an empty
	// database; writes are serialized by s.mu anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Ledgers (one row per invoice, optimistic version column)
	CREATE TABLE IF NOT EXISTS ledgers (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		issue_date TEXT,
		due_date TEXT NOT NULL,
		issued_by TEXT,
		cancelled_by TEXT,
		items_json TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledgers_status
		ON ledgers(status);
	CREATE INDEX IF NOT EXISTS idx_ledgers_due_date
		ON ledgers(due_date);

	-- Payments (append-only: this package issues no UPDATE/DELETE here)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL REFERENCES ledgers(id),
		seq INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		method TEXT NOT NULL,
		reference TEXT,
		reverses TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(ledger_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_payments_ledger
		ON payments(ledger_id, seq);

	-- Invoice number counter (numbering collaborator)
	CREATE TABLE IF NOT EXISTS invoice_numbers (
		name TEXT PRIMARY KEY,
		next INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (invoice.Store interface)
// =============================================================================

// Load returns the ledger with freshly recomputed aggregates.
func (s *Store) Load(ctx context.Context, id string) (*invoice.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load(ctx, s.db, id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) load(ctx context.Context, db querier, id string) (*invoice.Ledger, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, number, currency, status, issue_date, due_date,
		       issued_by, cancelled_by, items_json, version
		FROM ledgers WHERE id = ?
	`, id)

	var (
		l           invoice.Ledger
		issueDate   sql.NullString
		issuedBy    sql.NullString
		cancelledBy sql.NullString
		dueDate     string
		itemsJSON   string
	)
	err := row.Scan(&l.ID, &l.Number, &l.Currency, &l.Status,
		&issueDate, &dueDate, &issuedBy, &cancelledBy, &itemsJSON, &l.Version)
	if err == sql.ErrNoRows {
		return nil, invoice.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}

	if issueDate.Valid {
		l.IssueDate, _ = time.Parse(time.RFC3339, issueDate.String)
	}
	l.DueDate, _ = time.Parse(time.RFC3339, dueDate)
	l.IssuedBy = issuedBy.String
	l.CancelledBy = cancelledBy.String
	if err := json.Unmarshal([]byte(itemsJSON), &l.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	payments, err := s.loadPayments(ctx, db, l.ID)
	if err != nil {
		return nil, err
	}
	l.Payments = payments

	// Derived fields are never trusted from disk.
	l.Recompute()
	return &l, nil
}

func (s *Store) loadPayments(ctx context.Context, db querier, ledgerID string) ([]invoice.Payment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, amount, currency, paid_at, method, reference, reverses
		FROM payments WHERE ledger_id = ?
		ORDER BY seq ASC
	`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []invoice.Payment
	for rows.Next() {
		var (
			p         invoice.Payment
			paidAt    string
			reference sql.NullString
			reverses  sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Amount.Amount, &p.Amount.Currency,
			&paidAt, &p.Method, &reference, &reverses); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Date, _ = time.Parse(time.RFC3339, paidAt)
		p.Reference = reference.String
		p.Reverses = reverses.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Save inserts a new ledger (Version 0) or updates an existing one with a
// version check. New payments are appended to the payments table; rows
// already written are never touched.
func (s *Store) Save(ctx context.Context, l *invoice.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemsJSON, err := json.Marshal(l.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	newVersion := l.Version + 1

	if l.Version == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledgers
			(id, number, currency, status, issue_date, due_date,
			 issued_by, cancelled_by, items_json, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			l.ID, l.Number, l.Currency, l.Status,
			nullTime(l.IssueDate), l.DueDate.UTC().Format(time.RFC3339),
			nullString(l.IssuedBy), nullString(l.CancelledBy),
			string(itemsJSON), newVersion, now, now,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				if strings.Contains(err.Error(), "ledgers.number") {
					return invoice.ErrDuplicateNumber
				}
				return invoice.ErrConflict
			}
			return fmt.Errorf("failed to insert ledger: %w", err)
		}
	} else {
		// The number column never appears here: it is immutable after
		// assignment.
		res, err := tx.ExecContext(ctx, `
			UPDATE ledgers
			SET status = ?, issue_date = ?, issued_by = ?, cancelled_by = ?,
			    items_json = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?
		`,
			l.Status, nullTime(l.IssueDate),
			nullString(l.IssuedBy), nullString(l.CancelledBy),
			string(itemsJSON), newVersion, now,
			l.ID, l.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update ledger: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM ledgers WHERE id = ?", l.ID,
			).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				return invoice.ErrNotFound
			}
			return invoice.ErrConflict
		}
	}

	if err := s.appendNewPayments(ctx, tx, l); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	l.Version = newVersion
	return nil
}

// appendNewPayments inserts payment entries beyond what is already stored.
func (s *Store) appendNewPayments(ctx context.Context, tx *sql.Tx, l *invoice.Ledger) error {
	var stored int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE ledger_id = ?", l.ID,
	).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count payments: %w", err)
	}

	for i := stored; i < len(l.Payments); i++ {
		p := l.Payments[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payments
			(id, ledger_id, seq, amount, currency, paid_at, method, reference, reverses, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.ID, l.ID, i, p.Amount.Amount, p.Amount.Currency,
			p.Date.UTC().Format(time.RFC3339), p.Method,
			nullString(p.Reference), nullString(p.Reverses),
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return invoice.ErrConflict
			}
			return fmt.Errorf("failed to append payment: %w", err)
		}
	}
	return nil
}

// List returns ledgers matching the filter, ordered by number.
func (s *Store) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id FROM ledgers"
	var args []any
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY number ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]*invoice.Ledger, 0, len(ids))
	for _, id := range ids {
		l, err := s.load(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, nil
}

// =============================================================================
// NUMBER SEQUENCE (invoice.NumberSequence interface)
// =============================================================================

// Next issues the next invoice number ("INV-0001", "INV-0002", ...).
func (s *Store) Next(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO invoice_numbers (name, next) VALUES ('invoice', 0)",
	); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE invoice_numbers SET next = next + 1 WHERE name = 'invoice'",
	); err != nil {
		return "", err
	}

	var n int64
	if err := tx.QueryRowContext(ctx,
		"SELECT next FROM invoice_numbers WHERE name = 'invoice'",
	).Scan(&n); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%04d", n), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
