package core

import (
	"strings"
	"time"
)

// ISOLayout matches the millisecond UTC form used for draft dates.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Draft is a partially filled expense used to prefill the creation form.
// It comes from the text parser, the receipt scanner, or the user, and is
// never persisted directly.
type Draft struct {
	Amount     string
	Title      string
	Date       string // ISO-8601; empty means now
	CategoryID *int
}

// ValidationError is a user-facing form error. It unwraps to the core sentinel.
type ValidationError struct {
	Field   string
	Title   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Title + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FormatISO renders t the way draft dates are exchanged.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ToNewExpense validates the draft the way the creation form does and
// returns the insert shape. Checks run in order amount, title, category, date.
func (d Draft) ToNewExpense(now time.Time) (NewExpense, error) {
	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return NewExpense{}, &ValidationError{
			Field: "amount", Title: "Invalid Amount",
			Message: "Please enter a valid positive number.", Err: ErrInvalidAmount,
		}
	}

	title := strings.TrimSpace(d.Title)
	if title == "" {
		return NewExpense{}, &ValidationError{
			Field: "title", Title: "Missing Title",
			Message: "Please enter a description for the expense.", Err: ErrEmptyTitle,
		}
	}
	if len(title) > MaxTitleLength {
		return NewExpense{}, &ValidationError{
			Field: "title", Title: "Title Too Long",
			Message: "Please keep the description under 200 characters.", Err: ErrTitleTooLong,
		}
	}

	if d.CategoryID == nil || *d.CategoryID == 0 {
		return NewExpense{}, &ValidationError{
			Field: "categoryId", Title: "Missing Category",
			Message: "Please select a category.", Err: ErrMissingCategory,
		}
	}
	if _, ok := CategoryByID(*d.CategoryID); !ok {
		return NewExpense{}, &ValidationError{
			Field: "categoryId", Title: "Unknown Category",
			Message: "Please select one of the listed categories.", Err: ErrUnknownCategory,
		}
	}

	date := now
	if s := strings.TrimSpace(d.Date); s != "" {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return NewExpense{}, &ValidationError{
				Field: "date", Title: "Invalid Date",
				Message: "Please pick a valid date.", Err: ErrZeroDate,
			}
		}
		date = parsed.In(now.Location())
	}

	category := *d.CategoryID
	return NewExpense{
		Amount:     amount,
		Title:      title,
		Date:       date,
		CategoryID: &category,
	}, nil
}
