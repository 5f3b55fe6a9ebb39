// Package gateway defines the remote persistence operations the entity store
// depends on, one repository per entity kind.
//
// Ordering contract for List: categories by name ascending (case-insensitive),
// expenses and incomes by date descending.
package gateway

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record conflicts with an existing one")
	ErrUnavailable = errors.New("remote store unavailable")
)

type (
	// Repository is the per-kind remote contract. Create returns the record
	// as stored, carrying the assigned identifier.
	Repository[T any] interface {
		List(ctx context.Context, p core.Principal) ([]T, error)
		Create(ctx context.Context, p core.Principal, record T) (T, error)
		Delete(ctx context.Context, p core.Principal, id string) error
	}

	Gateway interface {
		Categories() Repository[core.Category]
		Expenses() Repository[core.Expense]
		Incomes() Repository[core.Income]
	}

	// Pinger is optionally implemented by gateways with a health probe.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
