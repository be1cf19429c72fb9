// Package calendar provides the civil date and time-block value types used
// throughout the scheduler. A Date is a plain (year, month, day) triple with
// no timezone or clock component: schedule rows live on calendar days, and
// treating them as instants reintroduces off-by-one-day bugs around DST.
package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Date is a calendar date in the clinic's local reckoning.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the Date on which t falls, in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// MustDate parses a YYYY-MM-DD date and panics on error. For tests and
// static tables only.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date. Used only for arithmetic; the
// result is never exposed as an instant.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// AddDays returns the date n days after d (or before, for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysUntil returns the number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}

// Before reports whether d precedes other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d follows other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Weekday returns the day of the week d falls on.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsWeekend reports whether d is a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekStart returns the Sunday on or before d. Weeks are Sunday-aligned
// throughout the scheduler.
func (d Date) WeekStart() Date {
	return d.AddDays(-int(d.Weekday()))
}

// Range returns every date from start through end inclusive. An empty slice
// is returned when end precedes start.
func Range(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	var out []Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Weeks returns the Sunday week-starts covering [start, end]. The first
// element is start's week start, which may precede start.
func Weeks(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	var out []Date
	for w := start.WeekStart(); !w.After(end); w = w.AddDays(7) {
		out = append(out, w)
	}
	return out
}

// Scan implements sql.Scanner so a SQL date column scans into a Date.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into calendar.Date", src)
}

// Value implements driver.Valuer for writing to SQL date columns.
func (d Date) Value() (driver.Value, error) {
	return d.Time(), nil
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date json: %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
