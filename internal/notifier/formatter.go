package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"BreadthSentinel/internal/model"
)

// IndexSnapshot is the latest state of one index's breadth history.
type IndexSnapshot struct {
	Name     string
	Latest   model.BreadthRecord
	Previous *model.BreadthRecord
	Err      error
}

// FormatBreadthReport renders the daily summary message.
func FormatBreadthReport(now time.Time, snaps []IndexSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Market Breadth</b> | %s\n\n", now.Format(model.DateLayout)))
	for _, s := range snaps {
		b.WriteString(FormatSnapshot(s))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSnapshot renders one index line block.
func FormatSnapshot(s IndexSnapshot) string {
	name := html.EscapeString(s.Name)
	if s.Err != nil {
		return fmt.Sprintf("❌ <b>%s</b>: %s\n", name, html.EscapeString(s.Err.Error()))
	}
	if s.Latest.Total == 0 {
		return fmt.Sprintf("• <b>%s</b>: no data\n", name)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("• <b>%s</b> (%s)\n", name, s.Latest.Date.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("  &gt; 200 SMA: %.2f%%", s.Latest.Percentage))
	if s.Previous != nil {
		b.WriteString(fmt.Sprintf(" (%+.2f)", s.Latest.Percentage-s.Previous.Percentage))
	}
	b.WriteString(" · " + Zone(s.Latest.Percentage) + "\n")
	b.WriteString(fmt.Sprintf("  Above %d | Below %d | Total %d\n", s.Latest.Above, s.Latest.Below, s.Latest.Total))
	return b.String()
}

// Zone labels the breadth level the way traders usually read it.
func Zone(pct float64) string {
	switch {
	case pct >= 80:
		return "overbought"
	case pct <= 20:
		return "oversold"
	default:
		return "neutral"
	}
}
