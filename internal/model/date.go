package model

import (
	"fmt"
	"time"
)

// Date is a calendar day without a time component, stored as days since
// the Unix epoch so values order and compare as plain integers.
type Date int32

const dateLayout = "2006-01-02"

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	days := t.Unix() / 86400
	if t.Unix() < 0 && t.Unix()%86400 != 0 {
		days--
	}
	return Date(days)
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

// DateSpan is an inclusive range of calendar days.
type DateSpan struct {
	Start Date
	End   Date
}

// Days returns the number of days covered by the span.
func (s DateSpan) Days() int {
	return int(s.End-s.Start) + 1
}

// Contains reports whether d falls inside the span.
func (s DateSpan) Contains(d Date) bool {
	return d >= s.Start && d <= s.End
}

func (s DateSpan) String() string {
	return fmt.Sprintf("%s..%s", s.Start, s.End)
}
