// Package adapters turns the local slot store into a gateway.Gateway, so the
// entity store can run with no hosted backend.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// seedNamespace derives stable identifiers for seeded categories, so a
// principal that never wrote anything sees the same IDs on every read.
var seedNamespace = uuid.MustParse("6f1c2a52-3d4e-4b8a-9c1d-0a7e5b2f8c31")

// LocalGateway stores each principal's collection as one JSON array per slot,
// keyed "<principal>/<kind>".
type LocalGateway struct {
	slots  storage.Slots
	loc    *time.Location
	logger *log.Logger
	mu     sync.Mutex // serializes read-modify-write of a slot

	categories *localRepo[core.Category]
	expenses   *localRepo[core.Expense]
	incomes    *localRepo[core.Income]
}

var _ gateway.Gateway = (*LocalGateway)(nil)

func NewLocalGateway(slots storage.Slots, loc *time.Location, logger *log.Logger) *LocalGateway {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	g := &LocalGateway{slots: slots, loc: loc, logger: logger.WithComponent(log.ComponentStorage)}
	g.categories = &localRepo[core.Category]{
		g:       g,
		kind:    core.KindCategory,
		compare: core.CompareByName,
		fallback: func(p core.Principal) []core.Category {
			defs := core.DefaultCategories()
			for i, c := range defs {
				id := uuid.NewSHA1(seedNamespace, []byte(string(p)+"/"+c.Name)).String()
				defs[i] = c.WithKey(id).WithOwner(p)
			}
			return defs
		},
		conflicts: func(existing []core.Category, c core.Category) bool {
			return slices.ContainsFunc(existing, func(o core.Category) bool { return o.Matches(c.Name) })
		},
		normalize: core.Category.Normalize,
	}
	g.expenses = &localRepo[core.Expense]{
		g:       g,
		kind:    core.KindExpense,
		compare: core.CompareByDateDesc[core.Expense],
		normalize: func(e core.Expense) core.Expense {
			e.Date = e.Date.Anchor(g.loc)
			return e
		},
	}
	g.incomes = &localRepo[core.Income]{
		g:       g,
		kind:    core.KindIncome,
		compare: core.CompareByDateDesc[core.Income],
		normalize: func(i core.Income) core.Income {
			i.Date = i.Date.Anchor(g.loc)
			return i
		},
	}
	return g
}

func (g *LocalGateway) Categories() gateway.Repository[core.Category] { return g.categories }
func (g *LocalGateway) Expenses() gateway.Repository[core.Expense]    { return g.expenses }
func (g *LocalGateway) Incomes() gateway.Repository[core.Income]      { return g.incomes }

// Ping probes the slot storage when it supports it.
func (g *LocalGateway) Ping(ctx context.Context) error {
	if p, ok := g.slots.(gateway.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func slotKey(p core.Principal, k core.Kind) string {
	return string(p) + "/" + string(k)
}

type localRepo[T core.Entity[T]] struct {
	g         *LocalGateway
	kind      core.Kind
	compare   func(a, b T) int
	fallback  func(p core.Principal) []T
	conflicts func(existing []T, record T) bool
	normalize func(T) T
}

// read never fails on bad data: a missing or corrupted slot yields the
// fallback collection. Only slot I/O errors are returned.
func (r *localRepo[T]) read(ctx context.Context, p core.Principal) ([]T, error) {
	key := slotKey(p, r.kind)
	raw, ok, err := r.g.slots.GetSlot(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	if !ok {
		return r.initial(p), nil
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		r.g.logger.WarnContext(ctx, "Corrupted slot, using initial collection",
			log.FieldSlot, key, log.FieldKind, r.kind, log.FieldError, err)
		return r.initial(p), nil
	}
	out := rows[:0]
	for _, row := range rows {
		if row.Owner() != "" && row.Owner() != p {
			continue
		}
		out = append(out, r.normalize(row.WithOwner(p)))
	}
	return out, nil
}

func (r *localRepo[T]) initial(p core.Principal) []T {
	if r.fallback == nil {
		return nil
	}
	return r.fallback(p)
}

func (r *localRepo[T]) write(ctx context.Context, p core.Principal, rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.kind, err)
	}
	if err := r.g.slots.PutSlot(ctx, slotKey(p, r.kind), raw); err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	return nil
}

func (r *localRepo[T]) List(ctx context.Context, p core.Principal) ([]T, error) {
	rows, err := r.read(ctx, p)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, r.compare)
	return rows, nil
}

func (r *localRepo[T]) Create(ctx context.Context, p core.Principal, record T) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}
	record = r.normalize(record)
	if err := record.Validate(); err != nil {
		return zero, err
	}

	r.g.mu.Lock()
	defer r.g.mu.Unlock()
	rows, err := r.read(ctx, p)
	if err != nil {
		return zero, err
	}
	if r.conflicts != nil && r.conflicts(rows, record) {
		return zero, gateway.ErrConflict
	}
	stored := record.WithKey(uuid.NewString()).WithOwner(p)
	if err := r.write(ctx, p, append(rows, stored)); err != nil {
		return zero, err
	}
	return stored, nil
}

func (r *localRepo[T]) Delete(ctx context.Context, p core.Principal, id string) error {
	r.g.mu.Lock()
	defer r.g.mu.Unlock()
	rows, err := r.read(ctx, p)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(rows, func(row T) bool { return row.Key() == id })
	if i < 0 {
		return fmt.Errorf("delete %s %s: %w", r.kind, id, gateway.ErrNotFound)
	}
	return r.write(ctx, p, slices.Delete(rows, i, i+1))
}
