package calculator

import (
	"math"
	"sort"
	"time"

	"BreadthSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// DateRange bounds the dates a breadth computation emits. A zero From or To
// leaves that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the range, bounds included.
func (r DateRange) Contains(d time.Time) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

type tally struct {
	above, below int
}

// ComputeBreadth classifies every symbol against its own 200-day SMA on each
// date in r and aggregates the counts per date.
func ComputeBreadth(series map[string]model.PriceSeries, r DateRange) model.BreadthHistory {
	return ComputeBreadthWindow(series, r, BreadthWindow)
}

// ComputeBreadthWindow is ComputeBreadth with an explicit SMA period.
//
// The SMA at date d covers the window most recent closes up to and including
// d. A symbol is classified above when close > sma and below otherwise; with
// fewer than window observations at or before d it is not counted at all.
// Dates where no symbol could be classified produce no record.
func ComputeBreadthWindow(series map[string]model.PriceSeries, r DateRange, window int) model.BreadthHistory {
	if window <= 0 {
		return nil
	}
	counts := make(map[time.Time]*tally)

	for _, s := range series {
		bars := normalizeBars(s.DailyBars)
		if len(bars) < window {
			continue
		}
		closes := extractCloses(bars)
		for i := window - 1; i < len(bars); i++ {
			d := bars[i].Time
			if !r.Contains(d) {
				continue
			}
			sma, err := CalculateSMA(closes[:i+1], window)
			if err != nil {
				continue
			}
			t, ok := counts[d]
			if !ok {
				t = &tally{}
				counts[d] = t
			}
			if closes[i] > sma {
				t.above++
			} else {
				t.below++
			}
		}
	}

	dates := make([]time.Time, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	history := make(model.BreadthHistory, 0, len(dates))
	for _, d := range dates {
		t := counts[d]
		total := t.above + t.below
		if total == 0 {
			continue
		}
		history = append(history, model.BreadthRecord{
			Date:       d,
			Percentage: Percentage(t.above, total),
			Above:      t.above,
			Below:      t.below,
			Total:      total,
		})
	}
	return history
}

// Percentage returns part/total*100 rounded to 4 decimal places, or 0 when
// total is not positive.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct, _ := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(4).
		Float64()
	return pct
}

// AttachIndexClose fills IndexClose on every record that has a benchmark bar
// for the same date.
func AttachIndexClose(history model.BreadthHistory, benchmark []model.OHLCV) {
	if len(benchmark) == 0 {
		return
	}
	closes := make(map[time.Time]float64, len(benchmark))
	for _, b := range normalizeBars(benchmark) {
		closes[b.Time] = b.Close
	}
	for i := range history {
		if c, ok := closes[history[i].Date]; ok {
			history[i].IndexClose = c
		}
	}
}

// normalizeBars returns a date-ascending copy of bars with null closes
// dropped, timestamps truncated to their day and one bar per date (the last
// one seen wins).
func normalizeBars(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		b.Time = model.DateOf(b.Time)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}
