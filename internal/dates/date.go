// Package dates provides the date-only calendar value used throughout the scheduler
// together with the weekend, blocking and work-day rules.
package dates

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a value cannot be read as a calendar date.
var ErrInvalidDate = errors.New("invalid date")

// Layout is the canonical YYYY-MM-DD form.
const Layout = time.DateOnly

// Date is a calendar day with no time-of-day or timezone. The zero value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the date for the given fields, normalising overflow the way time.Date does
// (e.g. January 32nd becomes February 1st).
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime anchors t to its calendar day in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day of now in loc (UTC when loc is nil).
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(now.In(loc))
}

// Parse reads a YYYY-MM-DD string or an RFC 3339 timestamp. For timestamps only the
// date part is used so a stored day never shifts across timezones.
func Parse(s string) (Date, error) {
	raw := strings.TrimSpace(s)
	if i := strings.IndexByte(raw, 'T'); i >= 0 {
		raw = raw[:i]
	}
	t, err := time.Parse(Layout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return FromTime(t), nil
}

// MustParse is Parse for compile-time constants and tests.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Canonical normalises a date-like string to YYYY-MM-DD.
func Canonical(s string) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns d at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// In returns d at the given clock time in loc.
func (d Date) In(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(Layout)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays offsets d by n days. No clamping is applied.
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or 1 when d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// DaysUntil returns the number of days from d to other (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsBlocked reports whether d is in the blocked set.
func IsBlocked(d Date, blocked Set) bool {
	return blocked.Has(d)
}

// NextWorkDay returns the day after d, rolled forward over a weekend to Monday.
func NextWorkDay(d Date) Date {
	next := d.AddDays(1)
	switch next.Weekday() {
	case time.Saturday:
		return next.AddDays(2)
	case time.Sunday:
		return next.AddDays(1)
	}
	return next
}

// Range returns n consecutive days starting at from.
func Range(from Date, n int) []Date {
	if n <= 0 {
		return nil
	}
	out := make([]Date, n)
	for i := range out {
		out[i] = from.AddDays(i)
	}
	return out
}

// Span returns every day from first through last inclusive. It is empty when last is before first.
func Span(first, last Date) []Date {
	if last.Before(first) {
		return nil
	}
	return Range(first, first.DaysUntil(last)+1)
}

// Sort orders ds chronologically in place.
func Sort(ds []Date) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}

// Sorted returns a chronologically ordered copy of ds.
func Sorted(ds []Date) []Date {
	out := append([]Date(nil), ds...)
	Sort(out)
	return out
}

// Strings formats ds in canonical form.
func Strings(ds []Date) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

// ParseAll parses every string in ss, failing on the first invalid one.
func ParseAll(ss []string) ([]Date, error) {
	out := make([]Date, 0, len(ss))
	for _, s := range ss {
		d, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Contains reports whether d appears in ds.
func Contains(ds []Date, d Date) bool {
	return IndexOf(ds, d) >= 0
}

// IndexOf returns the position of d in ds or -1.
func IndexOf(ds []Date, d Date) int {
	for i, v := range ds {
		if v == d {
			return i
		}
	}
	return -1
}
