// Package aggregate computes the derived views shown next to the entity
// collections. Every function is pure and recomputed on demand.
package aggregate

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Summary holds exact sums. Round only when rendering.
type Summary struct {
	Incomes  decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
}

// SummaryView is Summary rendered at display precision.
type SummaryView struct {
	Incomes  string `json:"incomes"`
	Expenses string `json:"expenses"`
	Balance  string `json:"balance"`
}

func (s Summary) Display() SummaryView {
	return SummaryView{
		Incomes:  s.Incomes.StringFixed(core.MoneyPlaces),
		Expenses: s.Expenses.StringFixed(core.MoneyPlaces),
		Balance:  s.Balance.StringFixed(core.MoneyPlaces),
	}
}

// Balance sums incomes and expenses; empty inputs give zeros.
func Balance(incomes []core.Income, expenses []core.Expense) Summary {
	in := sumOf(incomes, func(i core.Income) decimal.Decimal { return i.Amount.Decimal })
	out := sumOf(expenses, func(e core.Expense) decimal.Decimal { return e.Amount.Decimal })
	return Summary{Incomes: in, Expenses: out, Balance: in.Sub(out)}
}

func sumOf[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(amount(it))
	}
	return total
}

type CategoryTotal struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Color      core.ColorTag   `json:"color"`
}

// CategoryBreakdown totals expenses per existing category, in order of first
// occurrence. Expenses whose category no longer exists are left out.
func CategoryBreakdown(expenses []core.Expense, categories []core.Category) []CategoryTotal {
	byID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	index := map[string]int{}
	out := []CategoryTotal{}
	for _, e := range expenses {
		c, ok := byID[e.CategoryID]
		if !ok {
			continue
		}
		i, seen := index[c.ID]
		if !seen {
			i = len(out)
			index[c.ID] = i
			out = append(out, CategoryTotal{CategoryID: c.ID, Name: c.Name, Total: decimal.Zero, Color: core.NormalizeColor(string(c.Color))})
		}
		out[i].Total = out[i].Total.Add(e.Amount.Decimal)
	}
	return out
}

// ResolveCategory looks id up; ok is false for a dangling reference.
func ResolveCategory(categories []core.Category, id string) (core.Category, bool) {
	i := slices.IndexFunc(categories, func(c core.Category) bool { return c.ID == id })
	if i < 0 {
		return core.Category{}, false
	}
	return categories[i], true
}

type DayGroup struct {
	Key      string // YYYY-MM-DD
	Expenses []core.Expense
	Total    decimal.Decimal
}

type MonthGroup struct {
	Key     string // YYYY-MM
	Incomes []core.Income
	Total   decimal.Decimal
}

// GroupExpensesByDay buckets expenses by calendar day in loc. Expenses are
// expected newest first; buckets keep that order.
func GroupExpensesByDay(expenses []core.Expense, loc *time.Location) []DayGroup {
	out := []DayGroup{}
	index := map[string]int{}
	for _, e := range expenses {
		key := e.Date.DayKey(loc)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, DayGroup{Key: key, Total: decimal.Zero})
		}
		out[i].Expenses = append(out[i].Expenses, e)
		out[i].Total = out[i].Total.Add(e.Amount.Decimal)
	}
	return out
}

// GroupIncomesByMonth buckets incomes by calendar month in loc. Each bucket
// is re-sorted newest first.
func GroupIncomesByMonth(incomes []core.Income, loc *time.Location) []MonthGroup {
	out := []MonthGroup{}
	index := map[string]int{}
	for _, in := range incomes {
		key := in.Date.MonthKey(loc)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, MonthGroup{Key: key, Total: decimal.Zero})
		}
		out[i].Incomes = append(out[i].Incomes, in)
		out[i].Total = out[i].Total.Add(in.Amount.Decimal)
	}
	for i := range out {
		slices.SortStableFunc(out[i].Incomes, core.CompareByDateDesc[core.Income])
	}
	return out
}

// DayLabel renders a day key as "Today", "Yesterday" or a long date,
// relative to now in loc. Unparseable keys are returned unchanged.
func DayLabel(key string, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation("2006-01-02", key, loc)
	if err != nil {
		return key
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return d.Format("Monday, January 2, 2006")
	}
}

// MonthLabel renders a month key as "January 2024".
func MonthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}
