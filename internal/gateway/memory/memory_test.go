package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

func TestCategoriesSeedAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New(WithDefaultCategories())

	cats, err := s.Categories().List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cats, len(core.DefaultCategories()))
	for i := 1; i < len(cats); i++ {
		assert.LessOrEqual(t, core.CompareByName(cats[i-1], cats[i]), 0)
	}
	for _, c := range cats {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, core.Principal("alice"), c.Owner())
	}

	_, err = s.Categories().Create(ctx, "alice", core.Category{Name: "food"})
	assert.ErrorIs(t, err, gateway.ErrConflict)

	other, err := s.Categories().List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, other, len(cats))
	assert.NotEqual(t, cats[0].ID, other[0].ID)
}

func TestExpensesOrderedByDateDesc(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Expenses()
	for _, d := range []core.Date{core.NewDate(2024, 1, 2), core.NewDate(2024, 1, 5), core.NewDate(2024, 1, 3)} {
		_, err := repo.Create(ctx, "alice", core.Expense{Description: "x", Amount: core.MustMoney("1"), CategoryID: "c", Date: d})
		require.NoError(t, err)
	}
	list, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2024-01-05", list[0].Date.String())
	assert.Equal(t, "2024-01-02", list[2].Date.String())

	got, err := repo.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateValidatesAndDeleteReportsMissing(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Incomes().Create(ctx, "alice", core.Income{Description: "salary", Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = s.Incomes().Create(ctx, "", core.Income{Description: "salary", Amount: core.MustMoney("1"), Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrEmptyPrincipal)

	in, err := s.Incomes().Create(ctx, "alice", core.Income{Description: "salary", Amount: core.MustMoney("1"), Date: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Incomes().Delete(ctx, "bob", in.ID), gateway.ErrNotFound)
	require.NoError(t, s.Incomes().Delete(ctx, "alice", in.ID))
	assert.ErrorIs(t, s.Incomes().Delete(ctx, "alice", in.ID), gateway.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Expenses().List(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
}
