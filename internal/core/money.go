package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places amounts are kept at.
const MoneyPlaces = 3

// Money is a positive decimal amount with no currency attached.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d half-up to MoneyPlaces.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(MoneyPlaces)}
}

// MustMoney is for tests and fixed seeds; it panics on invalid input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a user-typed amount into Money.
//
// Both dot (12.345) and comma (12,345) separators are accepted. Signs,
// exponents and anything non-numeric are rejected, as are amounts that
// round to zero.
//
//	ParseMoney("12,5")    -> 12.500
//	ParseMoney("0.0004")  -> ErrInvalidAmount
//	ParseMoney("1.2345")  -> 1.235
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.':
		default:
			return Money{}, ErrInvalidAmount
		}
	}
	if digits == 0 {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Display renders the amount with exactly three decimals.
func (m Money) Display() string {
	return m.StringFixed(MoneyPlaces)
}

// Add returns m+o without rounding.
func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return m.Decimal.MarshalJSON()
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}
