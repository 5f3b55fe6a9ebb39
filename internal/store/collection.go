package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
	"fintrack/internal/log"
)

var errMissingID = errors.New("remote returned a record without identifier")

// Collection is the ordered, in-memory set of one entity kind for one
// principal. It is only mutated after the remote store confirms a write.
type Collection[T core.Entity[T]] struct {
	kind      core.Kind
	principal core.Principal
	repo      gateway.Repository[T]
	compare   func(a, b T) int
	prepare   func(T) T
	notifier  Notifier
	logger    *log.Logger

	mu    sync.RWMutex
	items []T
}

func newCollection[T core.Entity[T]](kind core.Kind, p core.Principal, repo gateway.Repository[T], compare func(a, b T) int, o options) *Collection[T] {
	return &Collection[T]{
		kind:      kind,
		principal: p,
		repo:      repo,
		compare:   compare,
		prepare:   func(t T) T { return t },
		notifier:  o.notifier,
		logger:    o.logger.With(log.FieldKind, string(kind), log.FieldPrincipal, string(p)),
	}
}

// Load replaces the collection with the remote one. On failure the
// collection is left empty and a *core.LoadError is returned.
func (c *Collection[T]) Load(ctx context.Context) error {
	rows, err := c.repo.List(ctx, c.principal)
	if err != nil {
		c.mu.Lock()
		c.items = nil
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "Collection load failed, presenting empty",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return &core.LoadError{Kind: c.kind, Err: err}
	}

	own := make([]T, 0, len(rows))
	for _, r := range rows {
		if r.Owner() != "" && r.Owner() != c.principal {
			c.logger.WarnContext(ctx, "Dropping record owned by another principal",
				log.FieldOperation, log.OpLoad, log.FieldEntityID, r.Key())
			continue
		}
		own = append(own, r)
	}
	slices.SortStableFunc(own, c.compare)

	c.mu.Lock()
	c.items = own
	c.mu.Unlock()
	c.logger.DebugContext(ctx, "Collection loaded", log.FieldOperation, log.OpLoad, log.FieldCount, len(own))
	return nil
}

// Add validates record, creates it remotely and inserts the confirmed copy.
// Invalid input fails with a *core.ValidationError before any remote call;
// a remote failure returns a *core.OperationError and leaves the collection
// untouched.
func (c *Collection[T]) Add(ctx context.Context, record T) (T, error) {
	var zero T
	record = c.prepare(record).WithOwner(c.principal)
	if err := record.Validate(); err != nil {
		if !errors.Is(err, core.ErrValidation) {
			err = &core.ValidationError{Err: err}
		}
		return zero, err
	}

	created, err := c.repo.Create(ctx, c.principal, record)
	if err == nil && created.Key() == "" {
		err = errMissingID
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Create rejected",
			log.FieldOperation, log.OpCreate, log.FieldError, err)
		return zero, &core.OperationError{Op: log.OpCreate, Kind: c.kind, Err: err}
	}
	created = created.WithOwner(c.principal)

	c.mu.Lock()
	// Prepend then stable-sort: among equal keys the new record comes first.
	c.items = slices.Insert(c.items, 0, created)
	slices.SortStableFunc(c.items, c.compare)
	c.mu.Unlock()

	c.notify(ctx, core.NewChange(core.ChangeCreated, c.kind, c.principal, created.Key(), &created))
	return created, nil
}

// Remove deletes id remotely, then locally. The remote call is always made,
// so an unknown id surfaces the remote not-found as a *core.OperationError.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, c.principal, id); err != nil {
		c.logger.WarnContext(ctx, "Delete rejected",
			log.FieldOperation, log.OpDelete, log.FieldEntityID, id, log.FieldError, err)
		return &core.OperationError{Op: log.OpDelete, Kind: c.kind, ID: id, Err: err}
	}

	c.mu.Lock()
	c.items = slices.DeleteFunc(c.items, func(t T) bool { return t.Key() == id })
	c.mu.Unlock()

	c.notify(ctx, core.NewChange[T](core.ChangeDeleted, c.kind, c.principal, id, nil))
	return nil
}

// All returns a copy of the collection in its current order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.items {
		if t.Key() == id {
			return t, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) Kind() core.Kind { return c.kind }

func (c *Collection[T]) notify(ctx context.Context, ch core.Change) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.PublishChange(ctx, ch); err != nil {
		c.logger.WarnContext(ctx, "Change notification failed",
			log.FieldOperation, log.OpPublish, log.FieldEntityID, ch.ID, log.FieldError, err)
	}
}
