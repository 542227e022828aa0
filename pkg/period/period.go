// Package period implements calendar bucketing for report time series.
//
// A period is a week, month, quarter, or year. Records are grouped by the
// period containing their timestamp, and reports enumerate every period in
// a range so that empty periods still appear as zero entries.
//
// Weeks follow ISO 8601: they start on Monday and are labeled with the ISO
// week-numbering year, which can differ from the calendar year around
// January 1st.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Granularity selects the period length used for bucketing.
type Granularity int

// Supported granularities, ordered from finest to coarsest.
const (
	Week Granularity = iota
	Month
	Quarter
	Year
)

var names = map[Granularity]string{
	Week:    "week",
	Month:   "month",
	Quarter: "quarter",
	Year:    "year",
}

// String returns the lowercase name of the granularity.
func (g Granularity) String() string {
	if s, ok := names[g]; ok {
		return s
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// Valid reports whether g is one of the defined granularities.
func (g Granularity) Valid() bool {
	_, ok := names[g]
	return ok
}

// ParseGranularity converts a user-supplied string into a Granularity.
// Matching is case-insensitive and accepts both singular and plural forms.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "s")) {
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	case "quarter":
		return Quarter, nil
	case "year":
		return Year, nil
	}
	return 0, fmt.Errorf("invalid granularity %q (want week, month, quarter, or year)", s)
}

// Key identifies a single period. Keys are comparable and can be used as
// map keys. The meaning of Index depends on the granularity: ISO week
// number for weeks, month (1-12) for months, zero-based quarter (0-3)
// for quarters, and 0 for years.
type Key struct {
	Year  int
	Index int
}

// Before reports whether k precedes other in time.
func (k Key) Before(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Index < other.Index
}

// KeyOf returns the period key for the period containing t.
//
// KeyOf panics on an undefined granularity: an invalid constant is a
// programming error, not a data error.
func KeyOf(t time.Time, g Granularity) Key {
	switch g {
	case Week:
		y, w := t.ISOWeek()
		return Key{Year: y, Index: w}
	case Month:
		return Key{Year: t.Year(), Index: int(t.Month())}
	case Quarter:
		return Key{Year: t.Year(), Index: (int(t.Month()) - 1) / 3}
	case Year:
		return Key{Year: t.Year()}
	}
	panic(fmt.Sprintf("period: invalid granularity %d", int(g)))
}

// Start returns the first instant of the period containing t, at midnight
// in t's location. For weeks this is the preceding (or same) Monday.
func Start(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case Week:
		// Weekday is Sunday=0; shift so Monday=0.
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	case Quarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, first, 1, 0, 0, 0, 0, t.Location())
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	}
	panic(fmt.Sprintf("period: invalid granularity %d", int(g)))
}

// Next returns the start of the period immediately after the period
// containing t. Month and quarter steps carry into the next year when the
// month index overflows December.
func Next(t time.Time, g Granularity) time.Time {
	s := Start(t, g)
	y, m, _ := s.Date()
	switch g {
	case Week:
		return s.AddDate(0, 0, 7)
	case Month:
		y2, m2 := carry(y, int(m)+1)
		return time.Date(y2, time.Month(m2), 1, 0, 0, 0, 0, s.Location())
	case Quarter:
		y2, m2 := carry(y, int(m)+3)
		return time.Date(y2, time.Month(m2), 1, 0, 0, 0, 0, s.Location())
	case Year:
		return time.Date(y+1, time.January, 1, 0, 0, 0, 0, s.Location())
	}
	panic(fmt.Sprintf("period: invalid granularity %d", int(g)))
}

// carry normalizes a month index that may have overflowed past December.
func carry(year, month int) (int, int) {
	if month > 12 {
		return year + 1, month - 12
	}
	return year, month
}

// Enumerate returns the start of every period in the half-open range
// [start, end). The first entry is the start of the period containing
// start, so a mid-period start still yields its full period. An empty or
// inverted range yields nil.
func Enumerate(start, end time.Time, g Granularity) []time.Time {
	var out []time.Time
	for cur := Start(start, g); cur.Before(end); cur = Next(cur, g) {
		out = append(out, cur)
	}
	return out
}

// Label formats the period containing t for report headings.
// Examples: "Week 05, 2024", "March 2024", "Quarter 1, 2024", "2024".
func Label(t time.Time, g Granularity) string {
	switch g {
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("Week %02d, %d", w, y)
	case Month:
		return t.Format("January 2006")
	case Quarter:
		return fmt.Sprintf("Quarter %d, %d", (int(t.Month())-1)/3+1, t.Year())
	case Year:
		return fmt.Sprintf("%d", t.Year())
	}
	panic(fmt.Sprintf("period: invalid granularity %d", int(g)))
}

// BarWidthDays returns the bar width, in days of chart x-axis space, used
// when drawing one bar per period. The values leave a small gap between
// adjacent bars.
func BarWidthDays(g Granularity) int {
	switch g {
	case Week:
		return 6
	case Month:
		return 26
	case Quarter:
		return 81
	case Year:
		return 328
	}
	panic(fmt.Sprintf("period: invalid granularity %d", int(g)))
}
