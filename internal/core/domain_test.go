package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	assert.NoError(t, NewDate(2025, 1, 1).Validate())
	assert.ErrorIs(t, Date{}.Validate(), ErrInvalidDate)
}

func TestParseDateLocalMidnight(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	d, err := ParseDate("2024-01-02", rome)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, "2024-01-02", d.DayKey(rome))
	assert.Equal(t, "2024-01", d.MonthKey(rome))

	_, err = ParseDate("02/01/2024", rome)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 3, 9)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-09T00:00:00Z"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d.Time))

	var short Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-09"`), &short))
	assert.True(t, short.Equal(d.Time))

	var bad Date
	assert.ErrorIs(t, json.Unmarshal([]byte(`"yesterday"`), &bad), ErrInvalidDate)
}

func TestDateAnchorKeepsCalendarDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	d := NewDate(2024, 1, 2).Anchor(ny)
	assert.Equal(t, "2024-01-02", d.DayKey(ny))
}

func TestNormalizeColor(t *testing.T) {
	cases := []struct {
		in   string
		want ColorTag
	}{
		{"teal", ColorTeal},
		{" Blue ", ColorBlue},
		{"magenta", ColorSlate},
		{"", ColorSlate},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeColor(tc.in), tc.in)
	}
	assert.Equal(t, "#64748b", ColorTag("nope").Hex())
	assert.Equal(t, "#00bab3", ColorTeal.Hex())
	assert.Len(t, Colors(), 10)
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Description: "coffee",
		Amount:      MustMoney("1.5"),
		CategoryID:  "c1",
		Date:        NewDate(2025, 1, 1),
	}
	require.NoError(t, good.Validate())

	cases := map[string]struct {
		mutate func(*Expense)
		field  string
		cause  error
	}{
		"zero date":        {func(e *Expense) { e.Date = Date{} }, "date", ErrInvalidDate},
		"empty desc":       {func(e *Expense) { e.Description = "  " }, "description", ErrEmptyDescription},
		"long desc":        {func(e *Expense) { e.Description = strings.Repeat("x", 201) }, "description", ErrDescriptionLong},
		"zero amount":      {func(e *Expense) { e.Amount = Money{} }, "amount", ErrInvalidAmount},
		"missing category": {func(e *Expense) { e.CategoryID = "" }, "category_id", ErrEmptyCategory},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := good
			tc.mutate(&e)
			err := e.Validate()
			require.ErrorIs(t, err, ErrValidation)
			require.ErrorIs(t, err, tc.cause)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestIncomeValidate(t *testing.T) {
	assert.NoError(t, Income{Description: "salary", Amount: MustMoney("1000"), Date: NewDate(2025, 1, 27)}.Validate())
	assert.ErrorIs(t, Income{Description: "salary", Date: NewDate(2025, 1, 27)}.Validate(), ErrInvalidAmount)
}

func TestCategoryNormalize(t *testing.T) {
	c := Category{Name: "  Pets ", Color: "ultraviolet"}.Normalize()
	assert.Equal(t, "Pets", c.Name)
	assert.Equal(t, ColorSlate, c.Color)
	assert.Equal(t, DefaultIcon, c.Icon)
	assert.True(t, c.Matches("pets"))
	assert.ErrorIs(t, Category{}.Validate(), ErrEmptyName)
}

func TestDefaultCategories(t *testing.T) {
	defs := DefaultCategories()
	require.Len(t, defs, 7)
	var hasFallback bool
	for _, c := range defs {
		assert.NoError(t, c.Validate())
		assert.True(t, c.Color.Valid(), c.Name)
		hasFallback = hasFallback || c.Name == FallbackCategoryName
	}
	assert.True(t, hasFallback)
}

func TestWithOwnerDoesNotMutate(t *testing.T) {
	e := Expense{ID: "e1"}
	owned := e.WithOwner("alice")
	assert.Equal(t, Principal("alice"), owned.Owner())
	assert.Empty(t, e.Owner())
	assert.ErrorIs(t, Principal(" ").Validate(), ErrEmptyPrincipal)
}
