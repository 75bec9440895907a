package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRecorderCheckInCreatesDocument(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, time.UTC, zaptest.NewLogger(t))
	ctx := context.Background()

	at := time.Date(2026, time.January, 16, 10, 5, 0, 0, time.UTC)
	entry, added, err := rec.CheckIn(ctx, "Dev@Example.com ", at)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, DayEntry{Date: "2026-01-16", EntryTime: "10:05 AM"}, entry)

	doc, err := store.Get(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.True(t, doc.Verified)
	assert.Equal(t, MethodFace, doc.Method)
	require.Len(t, doc.Months, 1)
	assert.Equal(t, "January 2026", doc.Months[0].MonthName)
	assert.Equal(t, []DayEntry{entry}, doc.Months[0].Records)
}

func TestRecorderCheckInSameDayIsNoop(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, time.UTC, nil)
	ctx := context.Background()

	first := time.Date(2026, time.January, 16, 9, 0, 0, 0, time.UTC)
	_, added, err := rec.CheckIn(ctx, "a@example.com", first)
	require.NoError(t, err)
	require.True(t, added)

	_, added, err = rec.CheckIn(ctx, "a@example.com", first.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, added)

	_, _, err = rec.CheckIn(ctx, "a@example.com", time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	doc, err := store.Get(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, doc.Months, 2)
	assert.Equal(t, "9:00 AM", doc.Months[0].Records[0].EntryTime)
	assert.Equal(t, 2, TotalAttendance(doc))
}

func TestRecorderBucketsInConfiguredZone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	store := NewMemoryStore()
	rec := NewRecorder(store, loc, nil)

	// 20:00 UTC on Jan 31 is already Feb 1 in IST
	at := time.Date(2026, time.January, 31, 20, 0, 0, 0, time.UTC)
	entry, _, err := rec.CheckIn(context.Background(), "z@example.com", at)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", entry.Date)
	assert.Equal(t, "1:30 AM", entry.EntryTime)

	doc, err := store.Get(context.Background(), "z@example.com")
	require.NoError(t, err)
	assert.Equal(t, "February 2026", doc.Months[0].MonthName)
}

func TestRecorderCheckOut(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, time.UTC, nil)
	ctx := context.Background()
	day := time.Date(2026, time.March, 3, 9, 15, 0, 0, time.UTC)

	_, err := rec.CheckOut(ctx, "b@example.com", day)
	assert.True(t, errors.Is(err, ErrNoEntryToday))

	_, _, err = rec.CheckIn(ctx, "b@example.com", day)
	require.NoError(t, err)

	exit, err := rec.CheckOut(ctx, "b@example.com", day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "6:15 PM", exit)

	doc, err := store.Get(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "6:15 PM", doc.Months[0].Records[0].ExitTime)

	_, err = rec.CheckOut(ctx, "b@example.com", day.AddDate(0, 0, 1))
	assert.True(t, errors.Is(err, ErrNoEntryToday))
}

func TestRecorderRejectsEmptyEmail(t *testing.T) {
	rec := NewRecorder(NewMemoryStore(), time.UTC, nil)
	_, _, err := rec.CheckIn(context.Background(), "", time.Now())
	assert.Error(t, err)
	_, err = rec.CheckOut(context.Background(), "", time.Now())
	assert.Error(t, err)
}

func TestMemoryStoreListPaginates(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		store.Put(Document{UserEmail: email, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	ctx := context.Background()

	page1, total, err := store.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "c@x.io", page1[0].UserEmail)

	page2, _, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "a@x.io", page2[0].UserEmail)

	empty, _, err := store.List(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = store.Get(ctx, "nobody@x.io")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecordedDayIsPresentInRecorderZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	store := NewMemoryStore()
	rec := NewRecorder(store, ist, nil)
	ctx := context.Background()

	// 20 February in IST while the host clock still reads 19 February UTC.
	at := time.Date(2024, time.February, 19, 20, 0, 0, 0, time.UTC)
	entry, _, err := rec.CheckIn(ctx, "dev@example.com", at)
	require.NoError(t, err)
	require.Equal(t, "2024-02-20", entry.Date)

	doc, err := store.Get(ctx, "dev@example.com")
	require.NoError(t, err)

	view := NewReconciler(ist, InstantFuture)
	view.Now = fixedNow(at)
	feb := view.Document(doc).Months[0]
	assert.Equal(t, KindPresent, feb.Days[19].Kind)
	assert.Equal(t, KindFuture, feb.Days[20].Kind)

	hostClock := Reconciler{Now: fixedNow(at)}
	assert.Equal(t, KindFuture, hostClock.Document(doc).Months[0].Days[19].Kind)
}
