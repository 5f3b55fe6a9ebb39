package core

import (
	"strings"
	"time"
)

// Forms carry raw user input. Parse turns them into entities ready for a
// store Add, or returns a *ValidationError naming the offending field.

type ExpenseForm struct {
	Description string
	Amount      string
	CategoryID  string
	Date        string // YYYY-MM-DD; empty means today
}

type IncomeForm struct {
	Description string
	Amount      string
	Date        string
}

type CategoryForm struct {
	Name  string
	Icon  string
	Color string
}

func (f ExpenseForm) Parse(loc *time.Location) (Expense, error) {
	amount, err := ParseMoney(f.Amount)
	if err != nil {
		return Expense{}, invalid("amount", err)
	}
	date, err := parseFormDate(f.Date, loc)
	if err != nil {
		return Expense{}, invalid("date", err)
	}
	e := Expense{
		Description: strings.TrimSpace(f.Description),
		Amount:      amount,
		CategoryID:  strings.TrimSpace(f.CategoryID),
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (f IncomeForm) Parse(loc *time.Location) (Income, error) {
	amount, err := ParseMoney(f.Amount)
	if err != nil {
		return Income{}, invalid("amount", err)
	}
	date, err := parseFormDate(f.Date, loc)
	if err != nil {
		return Income{}, invalid("date", err)
	}
	i := Income{
		Description: strings.TrimSpace(f.Description),
		Amount:      amount,
		Date:        date,
	}
	if err := i.Validate(); err != nil {
		return Income{}, err
	}
	return i, nil
}

func (f CategoryForm) Parse() (Category, error) {
	c := Category{Name: f.Name, Icon: f.Icon, Color: ColorTag(f.Color)}.Normalize()
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	return c, nil
}

func parseFormDate(s string, loc *time.Location) (Date, error) {
	if strings.TrimSpace(s) == "" {
		return Today(loc), nil
	}
	return ParseDate(s, loc)
}
