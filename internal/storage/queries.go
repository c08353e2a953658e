package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// ExpenseRow mirrors one row of the expenses table.
type ExpenseRow struct {
	ID          int64
	AmountCents int64
	Title       string
	Date        int64 // unix milliseconds
	CategoryID  sql.NullInt64
	CreatedAt   int64 // unix milliseconds
}

const listExpenses = `SELECT id, amount_cents, title, date, category_id, created_at
FROM expenses
ORDER BY date DESC, id DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(
			&i.ID,
			&i.AmountCents,
			&i.Title,
			&i.Date,
			&i.CategoryID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `INSERT INTO expenses (amount_cents, title, date, category_id, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, amount_cents, title, date, category_id, created_at`

type CreateExpenseParams struct {
	AmountCents int64
	Title       string
	Date        int64
	CategoryID  sql.NullInt64
	CreatedAt   int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.AmountCents,
		arg.Title,
		arg.Date,
		arg.CategoryID,
		arg.CreatedAt,
	)
	var i ExpenseRow
	err := row.Scan(
		&i.ID,
		&i.AmountCents,
		&i.Title,
		&i.Date,
		&i.CategoryID,
		&i.CreatedAt,
	)
	return i, err
}

const deleteAllExpenses = `DELETE FROM expenses`

func (q *Queries) DeleteAllExpenses(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllExpenses)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countExpenses = `SELECT COUNT(*) FROM expenses`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses)
	var count int64
	err := row.Scan(&count)
	return count, err
}
