// Package store holds the in-memory expense list that views render from.
//
// Every action marks the store as loading, calls the repository, folds any
// failure into a fixed message, and clears loading when it returns.
package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"tracker/internal/core"
)

// Messages stored in State.Error when an action fails.
const (
	MsgFetchFailed = "Failed to fetch expenses"
	MsgAddFailed   = "Failed to add expense"
	MsgClearFailed = "Failed to clear expenses"
)

// Repository is the persistence the store drives.
type Repository interface {
	GetAll(ctx context.Context) ([]core.Expense, error)
	Create(ctx context.Context, e core.NewExpense) (core.Expense, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Publisher receives change notifications. Failures are logged only.
type Publisher interface {
	PublishExpenseCreated(ctx context.Context, id int64) error
	PublishExpensesCleared(ctx context.Context, count int64) error
}

// ActionError is returned by a failed action. Message is the fixed text
// also stored in State.Error.
type ActionError struct {
	Message string
	Err     error
}

func (e *ActionError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *ActionError) Unwrap() error { return e.Err }

// State is a consistent copy of the store.
type State struct {
	Items     []core.Expense
	IsLoading bool
	Error     string
	// Version increases whenever Items changes.
	Version uint64
}

type ExpenseStore struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
	refresh   singleflight.Group
	// writeMu serializes Add and Clear.
	writeMu sync.Mutex

	mu       sync.RWMutex
	items    []core.Expense
	inflight int
	err      string
	version  uint64
	// writes counts repository writes; a read started before the latest
	// write is discarded.
	writes uint64
}

// Option configures an ExpenseStore.
type Option func(*ExpenseStore)

func WithPublisher(p Publisher) Option {
	return func(s *ExpenseStore) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ExpenseStore) { s.logger = l }
}

func New(repo Repository, opts ...Option) *ExpenseStore {
	s := &ExpenseStore{
		repo:   repo,
		logger: slog.Default(),
		items:  []core.Expense{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *ExpenseStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Items:     slices.Clone(s.items),
		IsLoading: s.inflight > 0,
		Error:     s.err,
		Version:   s.version,
	}
}

// Items returns a copy of the current list.
func (s *ExpenseStore) Items() []core.Expense {
	return s.Snapshot().Items
}

func (s *ExpenseStore) begin() {
	s.mu.Lock()
	s.inflight++
	s.err = ""
	s.mu.Unlock()
}

func (s *ExpenseStore) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

func (s *ExpenseStore) fail(ctx context.Context, msg string, err error) error {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	s.logger.ErrorContext(ctx, msg, "error", err)
	return &ActionError{Message: msg, Err: err}
}

func (s *ExpenseStore) replace(items []core.Expense) {
	s.mu.Lock()
	s.setItemsLocked(items)
	s.mu.Unlock()
}

func (s *ExpenseStore) setItemsLocked(items []core.Expense) {
	if items == nil {
		items = []core.Expense{}
	}
	if !slices.EqualFunc(s.items, items, sameExpense) {
		s.items = items
		s.version++
	}
}

// replaceFrom applies items read at write generation gen, unless a write
// landed after the read started.
func (s *ExpenseStore) replaceFrom(gen uint64, items []core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writes == gen {
		s.setItemsLocked(items)
	}
}

func (s *ExpenseStore) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *ExpenseStore) markWrite() {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	s.refresh.Forget("all")
}

func sameExpense(a, b core.Expense) bool {
	if a.ID != b.ID || a.Amount != b.Amount || a.Title != b.Title ||
		!a.Date.Equal(b.Date) || !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if a.CategoryID == nil || b.CategoryID == nil {
		return a.CategoryID == b.CategoryID
	}
	return *a.CategoryID == *b.CategoryID
}

// Refresh re-reads the whole list. Concurrent callers share one read, and a
// caller whose ctx ends stops waiting without failing the others.
// On failure the previous items are kept.
func (s *ExpenseStore) Refresh(ctx context.Context) error {
	s.begin()
	defer s.end()

	if err := s.fetch(ctx); err != nil {
		return s.fail(ctx, MsgFetchFailed, err)
	}
	return nil
}

func (s *ExpenseStore) fetch(ctx context.Context) error {
	ch := s.refresh.DoChan("all", func() (interface{}, error) {
		gen := s.generation()
		items, err := s.repo.GetAll(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.replaceFrom(gen, items)
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Add stores e and then re-reads the list so Items carries the assigned id.
// The re-read is never shared with a read that started before the insert.
// A failed re-read after a successful insert still reports MsgAddFailed.
func (s *ExpenseStore) Add(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	s.begin()
	defer s.end()

	s.writeMu.Lock()
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		s.writeMu.Unlock()
		return core.Expense{}, s.fail(ctx, MsgAddFailed, err)
	}
	s.markWrite()
	items, err := s.repo.GetAll(ctx)
	if err == nil {
		s.replace(items)
	}
	s.writeMu.Unlock()

	s.publish(ctx, func(p Publisher) error { return p.PublishExpenseCreated(ctx, created.ID) })
	if err != nil {
		return created, s.fail(ctx, MsgAddFailed, err)
	}
	return created, nil
}

// Clear deletes every record and empties Items.
func (s *ExpenseStore) Clear(ctx context.Context) error {
	s.begin()
	defer s.end()

	s.writeMu.Lock()
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		s.writeMu.Unlock()
		return s.fail(ctx, MsgClearFailed, err)
	}
	s.markWrite()
	s.replace([]core.Expense{})
	s.writeMu.Unlock()

	s.publish(ctx, func(p Publisher) error { return p.PublishExpensesCleared(ctx, n) })
	return nil
}

func (s *ExpenseStore) publish(ctx context.Context, fn func(Publisher) error) {
	if s.publisher == nil {
		return
	}
	if err := fn(s.publisher); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish expense event", "error", err)
	}
}

// IsActionError reports whether err came from a store action.
func IsActionError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}
