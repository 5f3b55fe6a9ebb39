package core

import (
	"errors"
	"strings"
)

const (
	KindCategory Kind = "category"
	KindExpense  Kind = "expense"
	KindIncome   Kind = "income"
)

// FallbackCategoryName is the category that absorbs unmatched enrichment guesses.
const FallbackCategoryName = "Other"

const maxDescriptionLen = 200

type (
	// Kind names one of the three entity collections.
	Kind string

	// Principal is the opaque identity that owns a set of entities.
	Principal string

	Category struct {
		ID      string    `json:"id"`
		Name    string    `json:"name"`
		Icon    string    `json:"icon"`  // SVG path data, never interpreted here
		Color   ColorTag  `json:"color"` // one of the closed palette
		OwnerID Principal `json:"user_id,omitempty"`
	}

	Expense struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		CategoryID  string    `json:"category_id"` // may dangle after category deletion
		Date        Date      `json:"date"`
		OwnerID     Principal `json:"user_id,omitempty"`
	}

	Income struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Date        Date      `json:"date"`
		OwnerID     Principal `json:"user_id,omitempty"`
	}
)

// Entity is implemented by every record kind held in a store collection.
type Entity[T any] interface {
	Key() string
	Owner() Principal
	WithKey(id string) T
	WithOwner(p Principal) T
	Validate() error
}

var (
	_ Entity[Category] = Category{}
	_ Entity[Expense]  = Expense{}
	_ Entity[Income]   = Income{}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyPrincipal   = errors.New("empty principal")
)

func (k Kind) String() string { return string(k) }

func (p Principal) String() string { return string(p) }

func (p Principal) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return invalid("principal", ErrEmptyPrincipal)
	}
	return nil
}

func (c Category) Key() string      { return c.ID }
func (c Category) Owner() Principal { return c.OwnerID }

func (c Category) WithKey(id string) Category {
	c.ID = id
	return c
}

func (c Category) WithOwner(p Principal) Category {
	c.OwnerID = p
	return c
}

// Normalize trims the name and applies the icon and color defaults.
func (c Category) Normalize() Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Color = NormalizeColor(string(c.Color))
	if strings.TrimSpace(c.Icon) == "" {
		c.Icon = DefaultIcon
	}
	return c
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	return nil
}

// Matches reports whether name refers to this category, ignoring case.
func (c Category) Matches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name))
}

func (e Expense) Key() string      { return e.ID }
func (e Expense) Owner() Principal { return e.OwnerID }

func (e Expense) WithKey(id string) Expense {
	e.ID = id
	return e
}

func (e Expense) WithOwner(p Principal) Expense {
	e.OwnerID = p
	return e
}

func (e Expense) Validate() error {
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return invalid("category_id", ErrEmptyCategory)
	}
	if err := e.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

func (i Income) Key() string      { return i.ID }
func (i Income) Owner() Principal { return i.OwnerID }

func (i Income) WithKey(id string) Income {
	i.ID = id
	return i
}

func (i Income) WithOwner(p Principal) Income {
	i.OwnerID = p
	return i
}

func (i Income) Validate() error {
	if err := validateDescription(i.Description); err != nil {
		return err
	}
	if err := i.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if err := i.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return invalid("description", ErrEmptyDescription)
	}
	if len(s) > maxDescriptionLen {
		return invalid("description", ErrDescriptionLong)
	}
	return nil
}

// DefaultCategories returns the set seeded for a principal on first use.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Food", Icon: "M13 17h8m0 0V9m0 8l-8-8-4 4-6-6", Color: ColorCyan},
		{Name: "Transport", Icon: "M12 19l9 2-9-18-9 18 9-2zm0 0v-8", Color: ColorBlue},
		{Name: "Bills", Icon: "M9 12h6m-6 4h6m2 5H7a2 2 0 01-2-2V5a2 2 0 012-2h5.586a1 1 0 01.707.293l5.414 5.414a1 1 0 01.293.707V19a2 2 0 01-2 2z", Color: ColorRed},
		{Name: "Entertainment", Icon: "M14.752 11.168l-3.197-2.132A1 1 0 0010 9.87v4.263a1 1 0 001.555.832l3.197-2.132a1 1 0 000-1.664zM21 12a9 9 0 11-18 0 9 9 0 0118 0z", Color: ColorPurple},
		{Name: "Health", Icon: "M4.318 6.318a4.5 4.5 0 000 6.364L12 20.364l7.682-7.682a4.5 4.5 0 00-6.364-6.364L12 7.636l-1.318-1.318a4.5 4.5 0 00-6.364 0z", Color: ColorGreen},
		{Name: "Shopping", Icon: "M16 11V7a4 4 0 00-8 0v4M5 9h14l1 12H4L5 9z", Color: ColorOrange},
		{Name: FallbackCategoryName, Icon: "M5 12h.01M12 12h.01M19 12h.01M6 12a1 1 0 11-2 0 1 1 0 012 0zm7 0a1 1 0 11-2 0 1 1 0 012 0zm7 0a1 1 0 11-2 0 1 1 0 012 0z", Color: ColorSlate},
	}
}

// Dated is implemented by the entity kinds ordered by occurrence date.
type Dated interface {
	When() Date
}

func (e Expense) When() Date { return e.Date }
func (i Income) When() Date  { return i.Date }

// CompareByName orders categories by name ascending, ignoring case.
func CompareByName(a, b Category) int {
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

// CompareByDateDesc orders records newest first. Use it with a stable sort so
// records sharing a date keep their relative order.
func CompareByDateDesc[T Dated](a, b T) int {
	return b.When().Compare(a.When().Time)
}
