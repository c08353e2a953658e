package core

import (
	"errors"
	"strings"
	"time"
)

// MaxTitleLength bounds the stored title.
const MaxTitleLength = 200

type (
	Money struct {
		Cents int64
	}

	// Expense is a persisted expense record. ID and CreatedAt are assigned by the store.
	Expense struct {
		ID         int64
		Amount     Money
		Title      string
		Date       time.Time // transaction date chosen by the user
		CategoryID *int      // nil means uncategorized
		CreatedAt  time.Time
	}

	// NewExpense is the insert shape of an Expense.
	NewExpense struct {
		Amount     Money
		Title      string
		Date       time.Time
		CategoryID *int
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyTitle      = errors.New("empty title")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrMissingCategory = errors.New("missing category")
	ErrUnknownCategory = errors.New("unknown category")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e NewExpense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if e.CategoryID != nil {
		if _, ok := CategoryByID(*e.CategoryID); !ok {
			return ErrUnknownCategory
		}
	}
	return nil
}

// Category resolves the record's category, falling back to Uncategorized
// for nil or unknown ids.
func (e Expense) Category() Category {
	if e.CategoryID == nil {
		return Uncategorized
	}
	if c, ok := CategoryByID(*e.CategoryID); ok {
		return c
	}
	return Uncategorized
}

// IntPtr is a small helper for optional category ids.
func IntPtr(v int) *int {
	return &v
}
