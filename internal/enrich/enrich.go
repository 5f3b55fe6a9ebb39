// Package enrich turns a free-text transaction message into a best-effort
// expense guess. Nothing here touches the store; a failed guess only means
// the user fills the form in by hand.
package enrich

import (
	"context"
	"strings"

	"fintrack/internal/core"
)

// Suggestion is a parsed guess. CategoryName is whatever the parser
// returned and may not name a known category; resolve it with MatchCategory.
type Suggestion struct {
	Description  string     `json:"description"`
	Amount       core.Money `json:"amount"`
	CategoryName string     `json:"categoryName"`
}

// Parser extracts a Suggestion from text. Failures are *core.EnrichmentError.
type Parser interface {
	Parse(ctx context.Context, text string, categoryNames []string) (Suggestion, error)
}

// MatchCategory finds the category named by s, case-insensitively, falling
// back to the "Other" category. ok is false when neither exists.
func MatchCategory(s Suggestion, categories []core.Category) (core.Category, bool) {
	var fallback *core.Category
	for i, c := range categories {
		if c.Matches(s.CategoryName) {
			return c, true
		}
		if fallback == nil && c.Matches(core.FallbackCategoryName) {
			fallback = &categories[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return core.Category{}, false
}

// Form pre-fills an expense form from s. The date is left for the caller.
func (s Suggestion) Form(categories []core.Category) core.ExpenseForm {
	f := core.ExpenseForm{Description: s.Description}
	if !s.Amount.IsZero() {
		f.Amount = s.Amount.Display()
	}
	if c, ok := MatchCategory(s, categories); ok {
		f.CategoryID = c.ID
	}
	return f
}

// Names lists category names in the order given.
func Names(categories []core.Category) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if n := strings.TrimSpace(c.Name); n != "" {
			out = append(out, n)
		}
	}
	return out
}
