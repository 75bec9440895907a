package attendance

import (
	"time"

	"faceattend/internal/calendar"
)

// Kind classifies one calendar day for rendering.
type Kind string

const (
	KindWeekend Kind = "weekend"
	KindFuture  Kind = "future"
	KindPresent Kind = "present"
	KindAbsent  Kind = "absent"
)

// Classification is the derived label of a single day. Entry and exit
// times are only set for present days.
type Classification struct {
	Day       int    `json:"day"`
	Date      string `json:"date"`
	Kind      Kind   `json:"kind"`
	EntryTime string `json:"entryTime,omitempty"`
	ExitTime  string `json:"exitTime,omitempty"`
}

// FuturePolicy decides whether a day (at local midnight) lies in the future
// relative to now.
type FuturePolicy func(day, now time.Time) bool

// InstantFuture compares instants. Today's midnight is never after now, so
// today classifies as present/absent for the whole day.
func InstantFuture(day, now time.Time) bool {
	return day.After(now)
}

// CalendarDayFuture compares calendar dates in now's location.
func CalendarDayFuture(day, now time.Time) bool {
	return calendar.Midnight(day.In(now.Location())).After(calendar.Midnight(now))
}

// PolicyByName maps a config value to a policy; unknown names fall back to
// InstantFuture.
func PolicyByName(name string) FuturePolicy {
	if name == "calendar_day" {
		return CalendarDayFuture
	}
	return InstantFuture
}

// ClassifyDay labels one day. Precedence is weekend, future, present, absent:
// a weekend day with a record is still a weekend. Records match by exact
// date-string equality, so malformed dates never match; on duplicates the
// first record wins.
func ClassifyDay(year, monthIndex, day int, records []DayEntry, now time.Time, future FuturePolicy) Classification {
	if future == nil {
		future = InstantFuture
	}
	key := calendar.DateKey(year, monthIndex, day)
	out := Classification{Day: day, Date: key}

	candidate := time.Date(year, time.Month(monthIndex+1), day, 0, 0, 0, 0, now.Location())
	if calendar.IsWeekend(candidate.Weekday()) {
		out.Kind = KindWeekend
		return out
	}
	if future(candidate, now) {
		out.Kind = KindFuture
		return out
	}
	for _, r := range records {
		if r.Date == key {
			out.Kind = KindPresent
			out.EntryTime = r.EntryTime
			out.ExitTime = r.ExitTime
			return out
		}
	}
	out.Kind = KindAbsent
	return out
}

// Summary counts days per kind.
type Summary struct {
	Weekend int `json:"weekend"`
	Future  int `json:"future"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

func (s *Summary) add(k Kind) {
	switch k {
	case KindWeekend:
		s.Weekend++
	case KindFuture:
		s.Future++
	case KindPresent:
		s.Present++
	case KindAbsent:
		s.Absent++
	}
}

// MonthGrid is the calendar view of one month bucket. When the month name
// cannot be parsed, Unparseable is set, Error carries the reason and Days is
// empty; the UI shows a placeholder.
type MonthGrid struct {
	MonthName     string           `json:"monthName"`
	Year          int              `json:"year,omitempty"`
	MonthIndex    int              `json:"monthIndex"`
	LeadingBlanks int              `json:"leadingBlanks"`
	Days          []Classification `json:"days"`
	Summary       Summary          `json:"summary"`
	Unparseable   bool             `json:"unparseable,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// DocumentView is the rendered attendance of one user.
type DocumentView struct {
	UserEmail       string      `json:"userEmail"`
	Verified        bool        `json:"verified"`
	TotalAttendance int         `json:"totalAttendance"`
	Months          []MonthGrid `json:"months"`
}

// Reconciler builds calendar grids from attendance documents. The zero
// value uses time.Now in its own zone and InstantFuture. Location should be
// the zone the Recorder files days under, otherwise "today" shifts by the
// zone offset.
type Reconciler struct {
	Now      func() time.Time
	Future   FuturePolicy
	Location *time.Location
}

// NewReconciler classifies days in loc under the given policy.
func NewReconciler(loc *time.Location, future FuturePolicy) Reconciler {
	return Reconciler{Future: future, Location: loc}
}

func (r Reconciler) now() time.Time {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	if r.Location != nil {
		now = now.In(r.Location)
	}
	return now
}

// MonthGrid classifies every day of the bucket.
func (r Reconciler) MonthGrid(m MonthRecord) MonthGrid {
	return r.monthGrid(m, r.now())
}

func (r Reconciler) monthGrid(m MonthRecord, now time.Time) MonthGrid {
	grid := MonthGrid{MonthName: m.MonthName}
	month, err := calendar.ParseMonthIdentity(m.MonthName)
	if err != nil {
		grid.Unparseable = true
		grid.Error = err.Error()
		grid.Days = []Classification{}
		return grid
	}
	grid.Year = month.Year
	grid.MonthIndex = month.Index
	grid.LeadingBlanks = int(month.First(now.Location()).Weekday())

	n := month.Days()
	grid.Days = make([]Classification, 0, n)
	for day := 1; day <= n; day++ {
		c := ClassifyDay(month.Year, month.Index, day, m.Records, now, r.Future)
		grid.Summary.add(c.Kind)
		grid.Days = append(grid.Days, c)
	}
	return grid
}

// Document renders every month bucket in stored order against a single
// "now" so all grids agree.
func (r Reconciler) Document(doc Document) DocumentView {
	now := r.now()
	view := DocumentView{
		UserEmail:       doc.UserEmail,
		Verified:        doc.Verified,
		TotalAttendance: TotalAttendance(doc),
		Months:          make([]MonthGrid, 0, len(doc.Months)),
	}
	for _, m := range doc.Months {
		view.Months = append(view.Months, r.monthGrid(m, now))
	}
	return view
}
