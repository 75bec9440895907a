package attendance

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderGrid(t *testing.T) {
	r := Reconciler{Now: func() time.Time { return time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC) }}
	g := r.MonthGrid(MonthRecord{
		MonthName: "February 2024",
		Records:   []DayEntry{{Date: "2024-02-14", EntryTime: "10:05 AM"}},
	})

	var sb strings.Builder
	require.NoError(t, RenderGrid(&sb, g))
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")

	assert.Equal(t, "February 2024  present 1  absent 13  weekend 8  future 7", lines[0])
	assert.Equal(t, "Su  Mo  Tu  We  Th  Fr  Sa", lines[1])
	// 1 February 2024 is a Thursday.
	assert.Equal(t, "                 1A  2A  3.", lines[2])
	assert.Equal(t, " 4.  5A  6A  7A  8A  9A 10.", lines[3])
	assert.Equal(t, "11. 12A 13A 14P 15A 16A 17.", lines[4])
	assert.Equal(t, "25. 26- 27- 28- 29-", lines[6])
}

func TestRenderGridUnparseable(t *testing.T) {
	g := Reconciler{}.MonthGrid(MonthRecord{MonthName: "Smarch 2024"})
	var sb strings.Builder
	require.NoError(t, RenderGrid(&sb, g))
	assert.Contains(t, sb.String(), "unreadable month name")
}
