package calculator

import (
	"math/rand"
	"testing"
	"time"

	"BreadthSentinel/internal/model"
)

var day0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// makeSeries builds one bar per calendar day starting at day0.
func makeSeries(symbol string, closes []float64) model.PriceSeries {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return model.PriceSeries{Symbol: symbol, DailyBars: bars}
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func dayN(n int) time.Time { return day0.AddDate(0, 0, n-1) }

func findRecord(t *testing.T, h model.BreadthHistory, d time.Time) model.BreadthRecord {
	t.Helper()
	for _, r := range h {
		if r.Date.Equal(d) {
			return r
		}
	}
	t.Fatalf("no record for %s", d.Format(model.DateLayout))
	return model.BreadthRecord{}
}

func TestComputeBreadth_OneAboveOneBelow(t *testing.T) {
	series := map[string]model.PriceSeries{
		"A.NS": makeSeries("A.NS", linear(300, 100, 1)),
		"B.NS": makeSeries("B.NS", linear(300, 1000, -1)),
	}
	h := ComputeBreadth(series, DateRange{})

	rec := findRecord(t, h, dayN(250))
	if rec.Above != 1 || rec.Below != 1 || rec.Total != 2 {
		t.Errorf("expected 1/1/2 on day 250, got %d/%d/%d", rec.Above, rec.Below, rec.Total)
	}
	if rec.Percentage != 50.0 {
		t.Errorf("expected 50.0%%, got %v", rec.Percentage)
	}

	// The first classified day is the 200th observation.
	if !h[0].Date.Equal(dayN(200)) {
		t.Errorf("expected first record on day 200, got %s", h[0].Date.Format(model.DateLayout))
	}
	if len(h) != 101 {
		t.Errorf("expected 101 records, got %d", len(h))
	}
}

func TestComputeBreadth_InsufficientHistoryEmitsNothing(t *testing.T) {
	series := map[string]model.PriceSeries{
		"A.NS": makeSeries("A.NS", linear(150, 100, 1)),
	}
	if h := ComputeBreadth(series, DateRange{}); len(h) != 0 {
		t.Fatalf("expected no records, got %d", len(h))
	}
}

func TestComputeBreadth_ShortSymbolNeverCounts(t *testing.T) {
	series := map[string]model.PriceSeries{
		"LONG.NS":  makeSeries("LONG.NS", linear(260, 100, 1)),
		"SHORT.NS": makeSeries("SHORT.NS", linear(199, 100, 1)),
	}
	for _, r := range ComputeBreadth(series, DateRange{}) {
		if r.Total != 1 {
			t.Fatalf("%s: expected total 1, got %d", r.Date.Format(model.DateLayout), r.Total)
		}
	}
}

func TestComputeBreadth_ConstantAndStepDownClassifyBelow(t *testing.T) {
	step := append(linear(100, 500, 0), linear(200, 100, 0)...)
	series := map[string]model.PriceSeries{
		"FLAT.NS": makeSeries("FLAT.NS", linear(300, 50, 0)),
		"STEP.NS": makeSeries("STEP.NS", step),
	}
	h := ComputeBreadth(series, DateRange{})
	if len(h) == 0 {
		t.Fatal("expected records")
	}
	for _, r := range h {
		if r.Above != 0 || r.Below != r.Total {
			t.Errorf("%s: expected all below, got above=%d below=%d",
				r.Date.Format(model.DateLayout), r.Above, r.Below)
		}
	}
}

func TestComputeBreadth_PartialHistoryJoinsLater(t *testing.T) {
	// LATE starts 50 days after EARLY and qualifies 50 days later.
	late := makeSeries("LATE.NS", linear(250, 10, 1))
	for i := range late.DailyBars {
		late.DailyBars[i].Time = late.DailyBars[i].Time.AddDate(0, 0, 50)
	}
	series := map[string]model.PriceSeries{
		"EARLY.NS": makeSeries("EARLY.NS", linear(300, 10, 1)),
		"LATE.NS":  late,
	}
	h := ComputeBreadth(series, DateRange{})
	if r := findRecord(t, h, dayN(249)); r.Total != 1 {
		t.Errorf("day 249: expected total 1, got %d", r.Total)
	}
	if r := findRecord(t, h, dayN(250)); r.Total != 2 {
		t.Errorf("day 250: expected total 2, got %d", r.Total)
	}
}

func TestComputeBreadth_GapContributesNothing(t *testing.T) {
	gappy := makeSeries("GAP.NS", linear(301, 100, 1))
	// Remove day 260 from GAP only.
	gappy.DailyBars = append(gappy.DailyBars[:259:259], gappy.DailyBars[260:]...)
	series := map[string]model.PriceSeries{
		"FULL.NS": makeSeries("FULL.NS", linear(300, 100, 1)),
		"GAP.NS":  gappy,
	}
	h := ComputeBreadth(series, DateRange{})
	if r := findRecord(t, h, dayN(260)); r.Total != 1 {
		t.Errorf("day 260: expected total 1, got %d", r.Total)
	}
	if r := findRecord(t, h, dayN(261)); r.Total != 2 {
		t.Errorf("day 261: expected total 2, got %d", r.Total)
	}
}

func TestComputeBreadth_RangeFilter(t *testing.T) {
	series := map[string]model.PriceSeries{
		"A.NS": makeSeries("A.NS", linear(300, 100, 1)),
	}
	h := ComputeBreadth(series, DateRange{From: dayN(280), To: dayN(290)})
	if len(h) != 11 {
		t.Fatalf("expected 11 records, got %d", len(h))
	}
	if !h[0].Date.Equal(dayN(280)) || !h[10].Date.Equal(dayN(290)) {
		t.Errorf("unexpected bounds %s..%s", h[0].Date.Format(model.DateLayout), h[10].Date.Format(model.DateLayout))
	}
}

func TestComputeBreadth_UnorderedAndDuplicateBars(t *testing.T) {
	s := makeSeries("A.NS", linear(220, 100, 1))
	// Reverse and duplicate the last bar with a lower close; the later entry wins.
	bars := make([]model.OHLCV, 0, len(s.DailyBars)+1)
	for i := len(s.DailyBars) - 1; i >= 0; i-- {
		bars = append(bars, s.DailyBars[i])
	}
	dup := s.DailyBars[len(s.DailyBars)-1]
	dup.Close = 1
	bars = append(bars, dup)
	s.DailyBars = bars

	h := ComputeBreadth(map[string]model.PriceSeries{"A.NS": s}, DateRange{})
	last, _ := h.Latest()
	if !last.Date.Equal(dayN(220)) {
		t.Fatalf("expected last record on day 220, got %s", last.Date.Format(model.DateLayout))
	}
	if last.Below != 1 {
		t.Errorf("expected duplicate bar to override close and classify below, got %+v", last)
	}
	if len(h) != 21 {
		t.Errorf("expected 21 records, got %d", len(h))
	}
}

func TestComputeBreadth_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	series := make(map[string]model.PriceSeries)
	for s := 0; s < 25; s++ {
		n := 150 + rng.Intn(250)
		closes := make([]float64, n)
		p := 100.0
		for i := range closes {
			p *= 1 + (rng.Float64()-0.5)*0.04
			closes[i] = p
		}
		sym := string(rune('A'+s)) + ".NS"
		series[sym] = makeSeries(sym, closes)
	}

	h := ComputeBreadth(series, DateRange{})
	if len(h) == 0 {
		t.Fatal("expected records")
	}
	for i, r := range h {
		if r.Above+r.Below != r.Total {
			t.Errorf("%s: above+below != total", r.Date.Format(model.DateLayout))
		}
		if r.Total == 0 {
			t.Errorf("%s: record with zero total", r.Date.Format(model.DateLayout))
		}
		if r.Percentage < 0 || r.Percentage > 100 {
			t.Errorf("%s: percentage %v out of range", r.Date.Format(model.DateLayout), r.Percentage)
		}
		if i > 0 && !h[i-1].Date.Before(r.Date) {
			t.Errorf("dates not strictly increasing at %d", i)
		}
	}
}

func TestComputeBreadth_AppendingADayKeepsHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	full := make(map[string][]float64)
	for _, sym := range []string{"A.NS", "B.NS", "C.NS"} {
		closes := make([]float64, 301)
		p := 50.0
		for i := range closes {
			p *= 1 + (rng.Float64()-0.5)*0.05
			closes[i] = p
		}
		full[sym] = closes
	}

	before := make(map[string]model.PriceSeries)
	after := make(map[string]model.PriceSeries)
	for sym, closes := range full {
		before[sym] = makeSeries(sym, closes[:300])
		after[sym] = makeSeries(sym, closes)
	}

	h1 := ComputeBreadth(before, DateRange{})
	h2 := ComputeBreadth(after, DateRange{})
	if len(h2) != len(h1)+1 {
		t.Fatalf("expected one extra record, got %d vs %d", len(h2), len(h1))
	}
	for i := range h1 {
		if h1[i] != h2[i] {
			t.Errorf("record %d changed: %+v vs %+v", i, h1[i], h2[i])
		}
	}
	if !h2[len(h2)-1].Date.Equal(dayN(301)) {
		t.Errorf("expected new record on day 301")
	}
}

func TestComputeBreadth_LaterFetchStartIsStable(t *testing.T) {
	closes := make([]float64, 320)
	p := 80.0
	rng := rand.New(rand.NewSource(3))
	for i := range closes {
		p *= 1 + (rng.Float64()-0.5)*0.03
		closes[i] = p
	}
	long := makeSeries("A.NS", closes)
	short := model.PriceSeries{Symbol: "A.NS", DailyBars: long.DailyBars[40:]}

	r := DateRange{From: dayN(300)}
	h1 := ComputeBreadth(map[string]model.PriceSeries{"A.NS": long}, r)
	h2 := ComputeBreadth(map[string]model.PriceSeries{"A.NS": short}, r)
	if len(h1) != len(h2) || len(h1) != 21 {
		t.Fatalf("expected 21 records each, got %d and %d", len(h1), len(h2))
	}
	for i := range h1 {
		if h1[i] != h2[i] {
			t.Errorf("record %d differs: %+v vs %+v", i, h1[i], h2[i])
		}
	}
}

func TestComputeBreadth_SkipsNullCloses(t *testing.T) {
	s := makeSeries("A.NS", linear(210, 100, 1))
	s.DailyBars[205].Close = 0
	h := ComputeBreadth(map[string]model.PriceSeries{"A.NS": s}, DateRange{})
	for _, r := range h {
		if r.Date.Equal(dayN(206)) {
			t.Fatal("null bar should not produce a record")
		}
	}
	if len(h) != 10 {
		t.Errorf("expected 10 records, got %d", len(h))
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{1, 2, 50},
		{0, 5, 0},
		{5, 5, 100},
		{1, 3, 33.3333},
		{2, 3, 66.6667},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.part, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d): expected %v, got %v", tt.part, tt.total, tt.want, got)
		}
	}
}

func TestAttachIndexClose(t *testing.T) {
	h := model.BreadthHistory{
		{Date: dayN(1), Above: 1, Total: 1, Percentage: 100},
		{Date: dayN(2), Below: 1, Total: 1},
	}
	bench := []model.OHLCV{{Time: dayN(2).Add(9 * time.Hour), Close: 22000}}
	AttachIndexClose(h, bench)
	if h[0].IndexClose != 0 {
		t.Errorf("expected no close on day 1, got %v", h[0].IndexClose)
	}
	if h[1].IndexClose != 22000 {
		t.Errorf("expected 22000 on day 2, got %v", h[1].IndexClose)
	}
}
