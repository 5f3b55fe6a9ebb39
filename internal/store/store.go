// Package store holds one principal's categories, expenses and incomes in
// memory and keeps them consistent with a remote gateway.
//
// Writes are confirmed-only: a record enters a collection after the remote
// store accepted it, and leaves after the remote delete succeeded. Nothing is
// retried or queued. Callers that want submission debouncing must add it
// themselves; concurrent operations on one collection are not serialized
// beyond keeping its slice consistent.
//
// Deleting a category does not touch expenses that reference it. Those
// become orphans and are resolved as a missing category at display time.
package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
	"fintrack/internal/log"
)

// Notifier receives confirmed changes. Failures are logged and dropped.
type Notifier interface {
	PublishChange(ctx context.Context, c core.Change) error
}

type options struct {
	notifier Notifier
	logger   *log.Logger
}

type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

type Store struct {
	principal  core.Principal
	logger     *log.Logger
	Categories *Collection[core.Category]
	Expenses   *Collection[core.Expense]
	Incomes    *Collection[core.Income]
}

// Snapshot is a read-only copy of all three collections.
type Snapshot struct {
	Categories []core.Category
	Expenses   []core.Expense
	Incomes    []core.Income
}

func New(gw gateway.Gateway, p core.Principal, opts ...Option) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, errors.New("store: nil gateway")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	o.logger = o.logger.WithComponent(log.ComponentStore)

	s := &Store{
		principal:  p,
		logger:     o.logger,
		Categories: newCollection(core.KindCategory, p, gw.Categories(), core.CompareByName, o),
		Expenses:   newCollection(core.KindExpense, p, gw.Expenses(), core.CompareByDateDesc[core.Expense], o),
		Incomes:    newCollection(core.KindIncome, p, gw.Incomes(), core.CompareByDateDesc[core.Income], o),
	}
	s.Categories.prepare = core.Category.Normalize
	return s, nil
}

func (s *Store) Principal() core.Principal { return s.principal }

// Load fetches the three collections concurrently. It never fails as a
// whole: each collection that could not be fetched is left empty and its
// *core.LoadError is included in the joined result.
func (s *Store) Load(ctx context.Context) error {
	loaders := []interface{ Load(context.Context) error }{s.Categories, s.Expenses, s.Incomes}
	errs := make([]error, len(loaders))

	var g errgroup.Group
	for i, l := range loaders {
		g.Go(func() error {
			errs[i] = l.Load(ctx)
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		s.logger.WarnContext(ctx, "Session started with missing collections",
			log.FieldOperation, log.OpLoad, log.FieldPrincipal, string(s.principal), log.FieldError, err)
	}
	return err
}

// SeedDefaults creates the default categories when the principal has none.
// It returns how many were created; individual failures are joined.
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	if s.Categories.Len() > 0 {
		return 0, nil
	}
	var errs []error
	n := 0
	for _, c := range core.DefaultCategories() {
		if _, err := s.Categories.Add(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("seed %q: %w", c.Name, err))
			continue
		}
		n++
	}
	s.logger.InfoContext(ctx, "Default categories seeded",
		log.FieldOperation, log.OpSeed, log.FieldPrincipal, string(s.principal), log.FieldCount, n)
	return n, errors.Join(errs...)
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Categories: s.Categories.All(),
		Expenses:   s.Expenses.All(),
		Incomes:    s.Incomes.All(),
	}
}
