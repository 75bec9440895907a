package attendance

import (
	"fmt"
	"io"
	"strings"
)

var kindGlyph = map[Kind]byte{
	KindWeekend: '.',
	KindFuture:  '-',
	KindPresent: 'P',
	KindAbsent:  'A',
}

// RenderGrid writes a month as a Sunday-first text calendar, one cell per
// day: P present, A absent, . weekend, - future.
func RenderGrid(w io.Writer, g MonthGrid) error {
	var b strings.Builder
	b.WriteString(g.MonthName)
	if g.Unparseable {
		fmt.Fprintf(&b, "\n  unreadable month name: %s\n", g.Error)
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "  present %d  absent %d  weekend %d  future %d\n",
		g.Summary.Present, g.Summary.Absent, g.Summary.Weekend, g.Summary.Future)
	b.WriteString("Su  Mo  Tu  We  Th  Fr  Sa\n")

	cells := make([]string, 0, g.LeadingBlanks+len(g.Days))
	for i := 0; i < g.LeadingBlanks; i++ {
		cells = append(cells, "   ")
	}
	for _, d := range g.Days {
		cells = append(cells, fmt.Sprintf("%2d%c", d.Day, kindGlyph[d.Kind]))
	}
	for i := 0; i < len(cells); i += 7 {
		end := min(i+7, len(cells))
		b.WriteString(strings.TrimRight(strings.Join(cells[i:end], " "), " "))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
