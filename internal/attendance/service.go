package attendance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"faceattend/internal/calendar"
)

// Recorder turns verified check-ins and check-outs into day entries.
type Recorder struct {
	store Store
	loc   *time.Location
	log   *zap.Logger
}

// NewRecorder creates a recorder that buckets days in loc.
func NewRecorder(store Store, loc *time.Location, logger *zap.Logger) *Recorder {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, loc: loc, log: logger}
}

// Location is the zone days are bucketed in.
func (r *Recorder) Location() *time.Location { return r.loc }

// CheckIn records the entry for the day containing at. It returns the entry
// and false when the day was already recorded; the stored entry is kept.
func (r *Recorder) CheckIn(ctx context.Context, email string, at time.Time) (DayEntry, bool, error) {
	if email == "" {
		return DayEntry{}, false, errors.New("user email required")
	}
	local := at.In(r.loc)
	entry := DayEntry{
		Date:      calendar.DateKeyOf(local),
		EntryTime: calendar.ClockTime(local),
	}
	month := calendar.MonthOf(local).Name()

	added, err := r.store.AppendEntry(ctx, email, month, entry, at)
	if err != nil {
		return DayEntry{}, false, err
	}
	if !added {
		r.log.Info("check-in already recorded",
			zap.String("user_email", email), zap.String("date", entry.Date))
		return entry, false, nil
	}
	r.log.Info("check-in recorded",
		zap.String("user_email", email), zap.String("date", entry.Date), zap.String("entry_time", entry.EntryTime))
	return entry, true, nil
}

// CheckOut sets the exit time on the entry for the day containing at.
func (r *Recorder) CheckOut(ctx context.Context, email string, at time.Time) (string, error) {
	if email == "" {
		return "", errors.New("user email required")
	}
	local := at.In(r.loc)
	exit := calendar.ClockTime(local)
	date := calendar.DateKeyOf(local)
	if err := r.store.SetExitTime(ctx, email, calendar.MonthOf(local).Name(), date, exit, at); err != nil {
		return "", err
	}
	r.log.Info("check-out recorded",
		zap.String("user_email", email), zap.String("date", date), zap.String("exit_time", exit))
	return exit, nil
}
