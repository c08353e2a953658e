package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tracker/internal/core"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("storage closed")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
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

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

func (r *SQLiteRepository) open() error {
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.open(); err != nil {
		return err
	}
	return r.db.PingContext(ctx)
}

// GetAll returns every expense ordered by transaction date descending.
// Rows sharing a date come newest id first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.open(); err != nil {
		return nil, err
	}

	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = toExpense(row)
	}
	return expenses, nil
}

// Create validates and inserts e, assigning its id and creation time.
func (r *SQLiteRepository) Create(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.open(); err != nil {
		return core.Expense{}, err
	}

	var category sql.NullInt64
	if e.CategoryID != nil {
		category = sql.NullInt64{Int64: int64(*e.CategoryID), Valid: true}
	}

	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		AmountCents: e.Amount.Cents,
		Title:       e.Title,
		Date:        e.Date.UnixMilli(),
		CategoryID:  category,
		CreatedAt:   r.now().UnixMilli(),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"title", row.Title,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return toExpense(row), nil
}

// DeleteAll removes every expense and returns how many rows were deleted.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.open(); err != nil {
		return 0, err
	}

	n, err := r.queries.DeleteAllExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}

	slog.InfoContext(ctx, "Expenses cleared", "count", n)
	return n, nil
}

// Count returns the number of stored expenses.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.open(); err != nil {
		return 0, err
	}

	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func toExpense(row ExpenseRow) core.Expense {
	e := core.Expense{
		ID:        row.ID,
		Amount:    core.Money{Cents: row.AmountCents},
		Title:     row.Title,
		Date:      time.UnixMilli(row.Date),
		CreatedAt: time.UnixMilli(row.CreatedAt),
	}
	if row.CategoryID.Valid {
		e.CategoryID = core.IntPtr(int(row.CategoryID.Int64))
	}
	return e
}
