package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"moneytracker/internal/core"
	ports "moneytracker/internal/sheets"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ ports.TransactionWriter = (*SQLiteRepository)(nil)
	_ ports.TransactionReader = (*SQLiteRepository)(nil)
)

// MaxSyncAttempts is how many failed syncs a row tolerates before it stops
// being offered by GetPendingSync.
const MaxSyncAttempts = 5

var ErrNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
}

// PendingSync is the minimal data needed to enqueue a sync message.
type PendingSync struct {
	ID        int64
	CreatedAt time.Time
}

func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	if loc == nil {
		loc = time.Local
	}
	return &SQLiteRepository{db: db, loc: loc}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Append implements sheets.TransactionWriter. The row ref is the row id.
func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	asset := t.Asset
	if asset == "" {
		asset = core.AssetOther
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (created_at, description, category, direction, amount, asset)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Timestamp.In(r.loc).Format(core.TimestampLayout),
		t.Description, t.Category, string(t.Direction), int64(t.Amount), asset)
	if err != nil {
		return "", fmt.Errorf("%w: insert transaction: %w", core.ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"description", t.Description,
		"amount", int64(t.Amount),
		"direction", string(t.Direction))

	return strconv.FormatInt(id, 10), nil
}

// ListTransactions implements sheets.TransactionReader, in insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, description, category, direction, amount, asset
		 FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %w", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		id, t, err := r.scan(rows)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed transaction row", "id", id, "error", err)
			continue
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %w", core.ErrStoreUnavailable, err)
	}
	return out, nil
}

// GetTransaction retrieves a single transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, description, category, direction, amount, asset
		 FROM transactions WHERE id = ?`, id)
	_, t, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// GetPendingSync returns unsynced rows that have not exhausted their attempts.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM transactions
		 WHERE synced_at IS NULL AND sync_error < ?
		 ORDER BY id LIMIT ?`, MaxSyncAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p  PendingSync
			ts string
		)
		if err := rows.Scan(&p.ID, &ts); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		p.CreatedAt, _ = time.ParseInLocation(core.TimestampLayout, ts, r.loc)
		out = append(out, p)
	}
	return out, rows.Err()
}

// IsSynced reports whether the row has already been copied to Google Sheets.
func (r *SQLiteRepository) IsSynced(ctx context.Context, id int64) (bool, error) {
	var synced bool
	err := r.db.QueryRowContext(ctx,
		`SELECT synced_at IS NOT NULL FROM transactions WHERE id = ?`, id).Scan(&synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("check synced %d: %w", id, err)
	}
	return synced, nil
}

// MarkSynced marks a transaction as successfully copied to Google Sheets.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced_at = ? WHERE id = ?`,
		time.Now().In(r.loc).Format(core.TimestampLayout), id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records one failed sync attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_error = sync_error + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scan(s scanner) (int64, core.Transaction, error) {
	var (
		id                        int64
		ts, desc, cat, dir, asset string
		amount                    int64
	)
	if err := s.Scan(&id, &ts, &desc, &cat, &dir, &amount, &asset); err != nil {
		return 0, core.Transaction{}, err
	}
	when, err := time.ParseInLocation(core.TimestampLayout, ts, r.loc)
	if err != nil {
		return id, core.Transaction{}, fmt.Errorf("%w: timestamp %q", core.ErrMalformedRecord, ts)
	}
	return id, core.Transaction{
		Timestamp:   when,
		Description: desc,
		Category:    cat,
		Direction:   core.Direction(dir),
		Amount:      core.Money(amount),
		Asset:       asset,
	}, nil
}
