package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClasses(t *testing.T) {
	cause := errors.New("connection reset")
	cases := []struct {
		err   error
		class error
		other error
	}{
		{&OperationError{Op: "create", Kind: KindExpense, Err: cause}, ErrOperationFailed, ErrLoadFailed},
		{&LoadError{Kind: KindIncome, Err: cause}, ErrLoadFailed, ErrOperationFailed},
		{&EnrichmentError{Err: cause}, ErrEnrichmentFailed, ErrValidation},
		{&ValidationError{Field: "x", Err: cause}, ErrValidation, ErrEnrichmentFailed},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.class)
		assert.ErrorIs(t, tc.err, cause)
		assert.NotErrorIs(t, tc.err, tc.other)
	}
	assert.Equal(t, "delete category c1: connection reset",
		(&OperationError{Op: "delete", Kind: KindCategory, ID: "c1", Err: cause}).Error())
}

func TestExpenseFormParse(t *testing.T) {
	loc := time.UTC
	e, err := ExpenseForm{Description: " lunch ", Amount: "12,5", CategoryID: "c1", Date: "2024-05-01"}.Parse(loc)
	require.NoError(t, err)
	assert.Equal(t, "lunch", e.Description)
	assert.Equal(t, "12.500", e.Amount.Display())
	assert.Equal(t, "2024-05-01", e.Date.DayKey(loc))

	_, err = ExpenseForm{Description: "lunch", Amount: "twelve", CategoryID: "c1"}.Parse(loc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	today, err := ExpenseForm{Description: "lunch", Amount: "1", CategoryID: "c1"}.Parse(loc)
	require.NoError(t, err)
	assert.Equal(t, Today(loc).DayKey(loc), today.Date.DayKey(loc))
}

func TestIncomeFormParse(t *testing.T) {
	_, err := IncomeForm{Description: "salary", Amount: "-5", Date: "2024-05-01"}.Parse(time.UTC)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = IncomeForm{Description: "salary", Amount: "5", Date: "May 1st"}.Parse(time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCategoryFormParse(t *testing.T) {
	c, err := CategoryForm{Name: "Pets", Color: "PINK"}.Parse()
	require.NoError(t, err)
	assert.Equal(t, ColorPink, c.Color)
	_, err = CategoryForm{Name: " "}.Parse()
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestNewChangeCarriesRecord(t *testing.T) {
	e := Expense{ID: "e1", Description: "x", Amount: MustMoney("1"), CategoryID: "c", Date: NewDate(2024, 1, 1)}
	c := NewChange(ChangeCreated, KindExpense, "alice", e.ID, &e)
	assert.Contains(t, string(c.Record), `"description":"x"`)
	d := NewChange[Expense](ChangeDeleted, KindExpense, "alice", "e1", nil)
	assert.Nil(t, d.Record)
}
