package dashboard

import (
	"fmt"
	"strings"

	"BreadthSentinel/internal/model"
)

const (
	chartWidth  = 960
	chartHeight = 320
)

type refLine struct {
	Y     float64
	Label string
}

type axisLabel struct {
	X    float64
	Text string
}

type chart struct {
	Width, Height int
	ViewBox       string
	LabelY        int
	Points        string
	RefLines      []refLine
	XLabels       []axisLabel
}

// buildChart lays out the percentage series on a fixed 0..100 y axis.
func buildChart(h model.BreadthHistory) chart {
	c := chart{
		Width:   chartWidth,
		Height:  chartHeight,
		ViewBox: fmt.Sprintf("-40 -10 %d %d", chartWidth+60, chartHeight+40),
		LabelY:  chartHeight + 18,
	}
	for _, lvl := range []float64{20, 50, 80} {
		c.RefLines = append(c.RefLines, refLine{Y: yOf(lvl), Label: fmt.Sprintf("%.0f%%", lvl)})
	}
	if len(h) == 0 {
		return c
	}

	var b strings.Builder
	for i, r := range h {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", xOf(i, len(h)), yOf(r.Percentage))
	}
	c.Points = b.String()

	// at most six evenly spaced date ticks
	step := (len(h) + 5) / 6
	if step == 0 {
		step = 1
	}
	for i := 0; i < len(h); i += step {
		c.XLabels = append(c.XLabels, axisLabel{X: xOf(i, len(h)), Text: h[i].Date.Format("Jan 2006")})
	}
	return c
}

func xOf(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1) * chartWidth
}

func yOf(pct float64) float64 {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return chartHeight - pct/100*chartHeight
}

type participationChart struct {
	ViewBox      string
	LabelY       int
	Max          int
	Above, Below string
	XLabels      []axisLabel
}

// buildParticipation stacks the above and below counts, scaled to the largest
// total in h. The below band sits on top of the above band.
func buildParticipation(h model.BreadthHistory) participationChart {
	c := participationChart{
		ViewBox: fmt.Sprintf("-40 -10 %d %d", chartWidth+60, chartHeight+40),
		LabelY:  chartHeight + 18,
	}
	for _, r := range h {
		c.Max = max(c.Max, r.Total)
	}
	if len(h) == 0 || c.Max == 0 {
		return c
	}
	y := func(n int) float64 { return chartHeight - float64(n)/float64(c.Max)*chartHeight }

	var above, below strings.Builder
	for i, r := range h {
		fmt.Fprintf(&above, "%.1f,%.1f ", xOf(i, len(h)), y(r.Above))
		fmt.Fprintf(&below, "%.1f,%.1f ", xOf(i, len(h)), y(r.Total))
	}
	fmt.Fprintf(&above, "%.1f,%d 0,%d", xOf(len(h)-1, len(h)), chartHeight, chartHeight)
	for i := len(h) - 1; i >= 0; i-- {
		fmt.Fprintf(&below, "%.1f,%.1f", xOf(i, len(h)), y(h[i].Above))
		if i > 0 {
			below.WriteByte(' ')
		}
	}
	c.Above, c.Below = above.String(), below.String()
	c.XLabels = buildChart(h).XLabels
	return c
}
