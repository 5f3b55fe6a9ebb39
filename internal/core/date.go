package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Date is a calendar date. The time-of-day it carries is not significant.
type Date struct {
	time.Time
}

// NewDate returns the date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return DateIn(year, month, day, time.UTC)
}

// DateIn returns the date at midnight in loc.
func DateIn(year int, month time.Month, day int, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// Today returns the current date in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	return DateIn(now.Year(), now.Month(), now.Day(), loc)
}

// ParseDate parses YYYY-MM-DD at local midnight in loc.
func ParseDate(s string, loc *time.Location) (Date, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dayLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// DayKey is the calendar-day grouping key in loc.
func (d Date) DayKey(loc *time.Location) string {
	return d.in(loc).Format(dayLayout)
}

// MonthKey is the calendar year-month grouping key in loc.
func (d Date) MonthKey(loc *time.Location) string {
	return d.in(loc).Format(monthLayout)
}

// Anchor re-expresses the date at midnight in loc, keeping its calendar day
// as observed in the original zone.
func (d Date) Anchor(loc *time.Location) Date {
	if d.IsZero() {
		return d
	}
	return DateIn(d.Year(), d.Month(), d.Day(), loc)
}

func (d Date) in(loc *time.Location) time.Time {
	if loc == nil {
		return d.Time
	}
	return d.In(loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dayLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.RFC3339))
}

// UnmarshalJSON accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}
