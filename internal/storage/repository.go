package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no invoice matches the requested id.
var ErrNotFound = errors.New("invoice not found")

// StoredInvoice is an invoice row as persisted. RawBundle is the original
// JSON document exactly as uploaded; provider and issue_date are denormalized
// copies used for listing without parsing the bundle.
type StoredInvoice struct {
	ID        string
	Provider  string
	IssueDate string
	RawBundle []byte
	CreatedAt time.Time
	SyncedAt  *time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save inserts an invoice or replaces an existing one with the same id.
// Re-uploading an invoice resets its sync state.
func (r *SQLiteRepository) Save(ctx context.Context, inv StoredInvoice) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (id, provider, issue_date, raw_bundle, created_at, synced_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, NULL)
		ON CONFLICT(id) DO UPDATE SET
			provider   = excluded.provider,
			issue_date = excluded.issue_date,
			raw_bundle = excluded.raw_bundle,
			synced_at  = NULL`,
		inv.ID, inv.Provider, inv.IssueDate, string(inv.RawBundle))
	if err != nil {
		return fmt.Errorf("save invoice: %w", err)
	}

	slog.InfoContext(ctx, "Invoice saved to SQLite",
		"id", inv.ID,
		"provider", inv.Provider,
		"issue_date", inv.IssueDate)

	return nil
}

// Get retrieves a single invoice by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (StoredInvoice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, provider, issue_date, raw_bundle, created_at, synced_at
		FROM invoices WHERE id = ?`, id)

	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredInvoice{}, ErrNotFound
	}
	if err != nil {
		return StoredInvoice{}, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return inv, nil
}

// List returns all invoices, newest upload first.
func (r *SQLiteRepository) List(ctx context.Context) ([]StoredInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, provider, issue_date, raw_bundle, created_at, synced_at
		FROM invoices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

// Delete removes an invoice. Deleting an unknown id returns ErrNotFound.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete invoice %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Invoice deleted", "id", id)
	return nil
}

// MarkSynced records that an invoice has been exported to the spreadsheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET synced_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invoice synced: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark invoice synced: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Invoice marked as synced", "id", id)
	return nil
}

// ListPendingSync returns up to limit invoices that have not been exported
// yet, oldest upload first so the backlog drains in order.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]StoredInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, provider, issue_date, raw_bundle, created_at, synced_at
		FROM invoices WHERE synced_at IS NULL
		ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

// Count returns the number of stored invoices.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (StoredInvoice, error) {
	var (
		inv       StoredInvoice
		raw       string
		issueDate sql.NullString
		syncedAt  sql.NullTime
	)
	if err := row.Scan(&inv.ID, &inv.Provider, &issueDate, &raw, &inv.CreatedAt, &syncedAt); err != nil {
		return StoredInvoice{}, err
	}
	inv.IssueDate = issueDate.String
	inv.RawBundle = []byte(raw)
	if syncedAt.Valid {
		t := syncedAt.Time
		inv.SyncedAt = &t
	}
	return inv, nil
}

func collectInvoices(rows *sql.Rows) ([]StoredInvoice, error) {
	var invoices []StoredInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}
