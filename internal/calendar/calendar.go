// Package calendar holds the month and date helpers shared by the
// attendance reconciler and the check-in recorder.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseableMonth is returned when a month name is not "<Month> <Year>".
var ErrUnparseableMonth = errors.New("unparseable month name")

// DateLayout is the stored form of a day-record date.
const DateLayout = "2006-01-02"

var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	for mo := time.January; mo <= time.December; mo++ {
		full := strings.ToLower(mo.String())
		m[full] = mo
		m[full[:3]] = mo
	}
	return m
}()

// Month identifies a calendar month. Index is zero based (January = 0).
type Month struct {
	Year  int
	Index int
}

// Name renders the display form stored in attendance documents, e.g. "January 2026".
func (m Month) Name() string {
	return fmt.Sprintf("%s %d", time.Month(m.Index+1), m.Year)
}

// First returns midnight of day 1 in loc.
func (m Month) First(loc *time.Location) time.Time {
	return time.Date(m.Year, time.Month(m.Index+1), 1, 0, 0, 0, 0, loc)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return DaysInMonth(m.Index, m.Year)
}

// ParseMonthIdentity parses "<EnglishMonthName> <Year>". Month names are
// matched case-insensitively, full or three-letter form.
func ParseMonthIdentity(monthName string) (Month, error) {
	parts := strings.Split(monthName, " ")
	if len(parts) != 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrUnparseableMonth, monthName)
	}
	mo, ok := monthsByName[strings.ToLower(parts[0])]
	if !ok {
		return Month{}, fmt.Errorf("%w: unknown month %q", ErrUnparseableMonth, parts[0])
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Month{}, fmt.Errorf("%w: bad year %q", ErrUnparseableMonth, parts[1])
	}
	return Month{Year: year, Index: int(mo) - 1}, nil
}

// DaysInMonth uses day 0 of the following month, which normalizes to the
// last day of monthIndex and so follows Gregorian leap-year rules.
func DaysInMonth(monthIndex, year int) int {
	return time.Date(year, time.Month(monthIndex+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateKey formats a zero-padded YYYY-MM-DD key.
func DateKey(year, monthIndex, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, monthIndex+1, day)
}

// DateKeyOf formats t in its own location.
func DateKeyOf(t time.Time) string {
	return t.Format(DateLayout)
}

// MonthOf returns the month containing t in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Index: int(t.Month()) - 1}
}

// Midnight truncates t to the start of its calendar day in its location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ClockTime renders a display time such as "10:05 AM".
func ClockTime(t time.Time) string {
	return t.Format("3:04 PM")
}

// IsWeekend reports Saturday or Sunday.
func IsWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}
