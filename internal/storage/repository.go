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

	"github.com/shopspring/decimal"

	"eventledger/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository is the local copy of the ledger. The ledger is always
// written as a whole, inside one transaction.
type SQLiteRepository struct {
	db *sql.DB
}

// SyncMeta is the sync bookkeeping kept next to the ledger so that status
// survives restarts.
type SyncMeta struct {
	LastSync  time.Time
	LastError string
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

// Load reads the whole ledger in insertion order. An empty database yields
// an empty ledger.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Ledger, error) {
	l := core.EmptyLedger()

	events, err := r.loadEvents(ctx)
	if err != nil {
		return core.Ledger{}, err
	}
	heads, err := r.loadHeads(ctx)
	if err != nil {
		return core.Ledger{}, err
	}
	entries, err := r.loadEntries(ctx)
	if err != nil {
		return core.Ledger{}, err
	}
	l.Events = append(l.Events, events...)
	l.ExpenseHeads = append(l.ExpenseHeads, heads...)
	l.ExpenseEntries = append(l.ExpenseEntries, entries...)
	return l, nil
}

// Save replaces the stored ledger with l.
func (r *SQLiteRepository) Save(ctx context.Context, l core.Ledger) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := clearTables(ctx, tx); err != nil {
			return err
		}
		for i, e := range l.Events {
			var end sql.NullString
			if e.EndDate != nil {
				end = sql.NullString{String: formatTime(*e.EndDate), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, insertEvent,
				e.ID, i, e.Name, e.Description, formatTime(e.StartDate), end, formatTime(e.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert event %s: %w", e.ID, err)
			}
		}
		for i, h := range l.ExpenseHeads {
			if _, err := tx.ExecContext(ctx, insertHead,
				h.ID, i, h.EventID, h.Name, h.Category, h.TotalAmount.String(), formatTime(h.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert expense head %s: %w", h.ID, err)
			}
		}
		for i, e := range l.ExpenseEntries {
			if _, err := tx.ExecContext(ctx, insertEntry,
				e.ID, i, e.ExpenseHeadID, e.AmountPaid.String(), formatTime(e.Date), e.Image,
			); err != nil {
				return fmt.Errorf("insert expense entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite",
		"events", len(l.Events),
		"expense_heads", len(l.ExpenseHeads),
		"expense_entries", len(l.ExpenseEntries))
	return nil
}

// Clear deletes every stored entity.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if err := r.inTx(ctx, func(tx *sql.Tx) error { return clearTables(ctx, tx) }); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadSyncMeta(ctx context.Context) (SyncMeta, error) {
	var (
		lastSync  sql.NullString
		lastError string
	)
	err := r.db.QueryRowContext(ctx, selectSyncMeta).Scan(&lastSync, &lastError)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncMeta{}, nil
	}
	if err != nil {
		return SyncMeta{}, fmt.Errorf("load sync meta: %w", err)
	}

	meta := SyncMeta{LastError: lastError}
	if lastSync.Valid {
		if meta.LastSync, err = parseTime(lastSync.String); err != nil {
			return SyncMeta{}, fmt.Errorf("load sync meta: %w", err)
		}
	}
	return meta, nil
}

func (r *SQLiteRepository) SaveSyncMeta(ctx context.Context, meta SyncMeta) error {
	var lastSync sql.NullString
	if !meta.LastSync.IsZero() {
		lastSync = sql.NullString{String: formatTime(meta.LastSync), Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, upsertSyncMeta, lastSync, meta.LastError, formatTime(time.Now())); err != nil {
		return fmt.Errorf("save sync meta: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadEvents(ctx context.Context) ([]core.Event, error) {
	rows, err := r.db.QueryContext(ctx, selectEvents)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var (
			e              core.Event
			start, created string
			end            sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &start, &end, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.StartDate, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		if end.Valid {
			t, err := parseTime(end.String)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", e.ID, err)
			}
			e.EndDate = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadHeads(ctx context.Context) ([]core.ExpenseHead, error) {
	rows, err := r.db.QueryContext(ctx, selectHeads)
	if err != nil {
		return nil, fmt.Errorf("query expense heads: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseHead
	for rows.Next() {
		var (
			h              core.ExpenseHead
			total, created string
		)
		if err := rows.Scan(&h.ID, &h.EventID, &h.Name, &h.Category, &total, &created); err != nil {
			return nil, fmt.Errorf("scan expense head: %w", err)
		}
		if h.TotalAmount, err = parseAmount(total); err != nil {
			return nil, fmt.Errorf("expense head %s: %w", h.ID, err)
		}
		if h.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("expense head %s: %w", h.ID, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadEntries(ctx context.Context) ([]core.ExpenseEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries)
	if err != nil {
		return nil, fmt.Errorf("query expense entries: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseEntry
	for rows.Next() {
		var (
			e            core.ExpenseEntry
			amount, date string
		)
		if err := rows.Scan(&e.ID, &e.ExpenseHeadID, &amount, &date, &e.Image); err != nil {
			return nil, fmt.Errorf("scan expense entry: %w", err)
		}
		if e.AmountPaid, err = parseAmount(amount); err != nil {
			return nil, fmt.Errorf("expense entry %s: %w", e.ID, err)
		}
		if e.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("expense entry %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range []string{deleteEntries, deleteHeads, deleteEvents} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}
	return nil
}

// parseAmount reads back what Amount.String wrote, sign included.
func parseAmount(s string) (core.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return core.NewAmount(d), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
