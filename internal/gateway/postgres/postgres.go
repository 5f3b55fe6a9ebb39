// Package postgres is the hosted row-store gateway, backed by pgx through
// database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
	"fintrack/internal/log"
)

const uniqueViolation = "23505"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS categories (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	icon TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT 'slate',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS categories_user_name_idx ON categories (user_id, lower(name));

CREATE TABLE IF NOT EXISTS expenses (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id TEXT NOT NULL,
	description TEXT NOT NULL,
	amount NUMERIC(14,3) NOT NULL CHECK (amount > 0),
	category_id TEXT NOT NULL,
	date DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS expenses_user_date_idx ON expenses (user_id, date DESC);

CREATE TABLE IF NOT EXISTS incomes (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id TEXT NOT NULL,
	description TEXT NOT NULL,
	amount NUMERIC(14,3) NOT NULL CHECK (amount > 0),
	date DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS incomes_user_date_idx ON incomes (user_id, date DESC);
`

type Gateway struct {
	db     *sql.DB
	loc    *time.Location
	logger *log.Logger
}

var (
	_ gateway.Gateway = (*Gateway)(nil)
	_ gateway.Pinger  = (*Gateway)(nil)
)

// Open parses databaseURL, opens a pool and verifies connectivity. Dates read
// back are anchored at midnight in loc.
func Open(ctx context.Context, databaseURL string, loc *time.Location, logger *log.Logger) (*Gateway, error) {
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	return New(db, loc, logger), nil
}

func New(db *sql.DB, loc *time.Location, logger *log.Logger) *Gateway {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{db: db, loc: loc, logger: logger.WithComponent(log.ComponentGateway)}
}

// EnsureSchema creates the tables when missing.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	if _, err := g.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	g.logger.InfoContext(ctx, "Schema ensured", log.FieldOperation, log.OpStartup)
	return nil
}

func (g *Gateway) Ping(ctx context.Context) error { return g.db.PingContext(ctx) }

func (g *Gateway) Close() error { return g.db.Close() }

func (g *Gateway) Categories() gateway.Repository[core.Category] { return categories{g} }
func (g *Gateway) Expenses() gateway.Repository[core.Expense]    { return expenses{g} }
func (g *Gateway) Incomes() gateway.Repository[core.Income]      { return incomes{g} }

// mapErr translates driver errors into gateway sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, gateway.ErrConflict)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, gateway.ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, gateway.ErrUnavailable, err)
}

func (g *Gateway) deleteFrom(ctx context.Context, table string, p core.Principal, id string) error {
	// Non-UUID identifiers can never match; compare as text to avoid a cast error.
	res, err := g.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = $1 AND id::text = $2", string(p), id)
	if err != nil {
		return mapErr("delete "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("delete "+table, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %s: %w", table, id, gateway.ErrNotFound)
	}
	return nil
}

type categories struct{ g *Gateway }

func (r categories) List(ctx context.Context, p core.Principal) ([]core.Category, error) {
	rows, err := r.g.db.QueryContext(ctx,
		`SELECT id, name, icon, color, user_id FROM categories WHERE user_id = $1 ORDER BY lower(name) ASC`, string(p))
	if err != nil {
		return nil, mapErr("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var color, owner string
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &color, &owner); err != nil {
			return nil, mapErr("scan category", err)
		}
		c.Color = core.NormalizeColor(color)
		c.OwnerID = core.Principal(owner)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list categories", err)
	}
	return out, nil
}

func (r categories) Create(ctx context.Context, p core.Principal, c core.Category) (core.Category, error) {
	c = c.Normalize()
	var color, owner string
	err := r.g.db.QueryRowContext(ctx,
		`INSERT INTO categories (user_id, name, icon, color) VALUES ($1, $2, $3, $4)
		 RETURNING id, name, icon, color, user_id`,
		string(p), c.Name, c.Icon, string(c.Color),
	).Scan(&c.ID, &c.Name, &c.Icon, &color, &owner)
	if err != nil {
		return core.Category{}, mapErr("create category", err)
	}
	c.Color = core.NormalizeColor(color)
	c.OwnerID = core.Principal(owner)
	return c, nil
}

func (r categories) Delete(ctx context.Context, p core.Principal, id string) error {
	return r.g.deleteFrom(ctx, "categories", p, id)
}

type expenses struct{ g *Gateway }

func (r expenses) List(ctx context.Context, p core.Principal) ([]core.Expense, error) {
	rows, err := r.g.db.QueryContext(ctx,
		`SELECT id, description, amount, category_id, date, user_id FROM expenses
		 WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, string(p))
	if err != nil {
		return nil, mapErr("list expenses", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var date time.Time
		var owner string
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Decimal, &e.CategoryID, &date, &owner); err != nil {
			return nil, mapErr("scan expense", err)
		}
		e.Date = core.Date{Time: date}.Anchor(r.g.loc)
		e.OwnerID = core.Principal(owner)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list expenses", err)
	}
	return out, nil
}

func (r expenses) Create(ctx context.Context, p core.Principal, e core.Expense) (core.Expense, error) {
	var date time.Time
	var owner string
	err := r.g.db.QueryRowContext(ctx,
		`INSERT INTO expenses (user_id, description, amount, category_id, date) VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, description, amount, category_id, date, user_id`,
		string(p), e.Description, e.Amount.String(), e.CategoryID, e.Date.String(),
	).Scan(&e.ID, &e.Description, &e.Amount.Decimal, &e.CategoryID, &date, &owner)
	if err != nil {
		return core.Expense{}, mapErr("create expense", err)
	}
	e.Date = core.Date{Time: date}.Anchor(r.g.loc)
	e.OwnerID = core.Principal(owner)
	return e, nil
}

func (r expenses) Delete(ctx context.Context, p core.Principal, id string) error {
	return r.g.deleteFrom(ctx, "expenses", p, id)
}

type incomes struct{ g *Gateway }

func (r incomes) List(ctx context.Context, p core.Principal) ([]core.Income, error) {
	rows, err := r.g.db.QueryContext(ctx,
		`SELECT id, description, amount, date, user_id FROM incomes
		 WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, string(p))
	if err != nil {
		return nil, mapErr("list incomes", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var in core.Income
		var date time.Time
		var owner string
		if err := rows.Scan(&in.ID, &in.Description, &in.Amount.Decimal, &date, &owner); err != nil {
			return nil, mapErr("scan income", err)
		}
		in.Date = core.Date{Time: date}.Anchor(r.g.loc)
		in.OwnerID = core.Principal(owner)
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list incomes", err)
	}
	return out, nil
}

func (r incomes) Create(ctx context.Context, p core.Principal, in core.Income) (core.Income, error) {
	var date time.Time
	var owner string
	err := r.g.db.QueryRowContext(ctx,
		`INSERT INTO incomes (user_id, description, amount, date) VALUES ($1, $2, $3, $4)
		 RETURNING id, description, amount, date, user_id`,
		string(p), in.Description, in.Amount.String(), in.Date.String(),
	).Scan(&in.ID, &in.Description, &in.Amount.Decimal, &date, &owner)
	if err != nil {
		return core.Income{}, mapErr("create income", err)
	}
	in.Date = core.Date{Time: date}.Anchor(r.g.loc)
	in.OwnerID = core.Principal(owner)
	return in, nil
}

func (r incomes) Delete(ctx context.Context, p core.Principal, id string) error {
	return r.g.deleteFrom(ctx, "incomes", p, id)
}
