// Package memory is an in-process gateway, used by default in development
// and as the remote double in tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

type Store struct {
	categories *table[core.Category]
	expenses   *table[core.Expense]
	incomes    *table[core.Income]
}

var _ gateway.Gateway = (*Store)(nil)

type Option func(*Store)

// WithDefaultCategories seeds core.DefaultCategories for each principal the
// first time its categories are touched.
func WithDefaultCategories() Option {
	return func(s *Store) {
		s.categories.seed = core.DefaultCategories
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		categories: newTable(core.CompareByName),
		expenses:   newTable(core.CompareByDateDesc[core.Expense]),
		incomes:    newTable(core.CompareByDateDesc[core.Income]),
	}
	s.categories.conflicts = func(existing []core.Category, c core.Category) bool {
		return slices.ContainsFunc(existing, func(o core.Category) bool { return o.Matches(c.Name) })
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Categories() gateway.Repository[core.Category] { return s.categories }
func (s *Store) Expenses() gateway.Repository[core.Expense]    { return s.expenses }
func (s *Store) Incomes() gateway.Repository[core.Income]      { return s.incomes }

func (s *Store) Ping(context.Context) error { return nil }

type table[T core.Entity[T]] struct {
	mu        sync.Mutex
	rows      map[core.Principal][]T
	seeded    map[core.Principal]bool
	compare   func(a, b T) int
	conflicts func(existing []T, record T) bool
	seed      func() []T
}

func newTable[T core.Entity[T]](compare func(a, b T) int) *table[T] {
	return &table[T]{
		rows:    map[core.Principal][]T{},
		seeded:  map[core.Principal]bool{},
		compare: compare,
	}
}

// ensureSeed must be called with mu held.
func (t *table[T]) ensureSeed(p core.Principal) {
	if t.seed == nil || t.seeded[p] {
		return
	}
	t.seeded[p] = true
	for _, r := range t.seed() {
		t.rows[p] = append(t.rows[p], r.WithKey(uuid.NewString()).WithOwner(p))
	}
}

func (t *table[T]) List(ctx context.Context, p core.Principal) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureSeed(p)
	out := slices.Clone(t.rows[p])
	slices.SortStableFunc(out, t.compare)
	return out, nil
}

func (t *table[T]) Create(ctx context.Context, p core.Principal, record T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := p.Validate(); err != nil {
		return zero, err
	}
	if err := record.Validate(); err != nil {
		return zero, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureSeed(p)
	if t.conflicts != nil && t.conflicts(t.rows[p], record) {
		return zero, gateway.ErrConflict
	}
	stored := record.WithKey(uuid.NewString()).WithOwner(p)
	t.rows[p] = append(t.rows[p], stored)
	return stored, nil
}

func (t *table[T]) Delete(ctx context.Context, p core.Principal, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := t.rows[p]
	i := slices.IndexFunc(rows, func(r T) bool { return r.Key() == id })
	if i < 0 {
		return gateway.ErrNotFound
	}
	t.rows[p] = slices.Delete(rows, i, i+1)
	return nil
}
