package calculator

import (
	"testing"

	"BreadthSentinel/internal/model"
)

func TestCalculateReturns(t *testing.T) {
	h := model.BreadthHistory{
		{Date: dayN(1), IndexClose: 100},
		{Date: dayN(24), IndexClose: 110},
		{Date: dayN(30), IndexClose: 0},
		{Date: dayN(31), IndexClose: 120},
		{Date: dayN(32), IndexClose: 0}, // latest close carries over from day 31
	}
	got := CalculateReturns(h)
	if len(got) != len(ReturnPeriods) {
		t.Fatalf("expected %d periods, got %d", len(ReturnPeriods), len(got))
	}

	byLabel := make(map[string]PeriodReturn)
	for _, r := range got {
		byLabel[r.Label] = r
	}
	if r := byLabel["1D"]; !r.OK || r.Return != 9.09 {
		t.Errorf("1D: expected 9.09, got %+v", r)
	}
	if r := byLabel["1W"]; !r.OK || r.Return != 9.09 {
		t.Errorf("1W: expected 9.09, got %+v", r)
	}
	if r := byLabel["1M"]; !r.OK || r.Return != 20 {
		t.Errorf("1M: expected 20, got %+v", r)
	}
	if r := byLabel["1Y"]; r.OK {
		t.Errorf("1Y: expected no data, got %+v", r)
	}
}

func TestCalculateReturns_NoCloses(t *testing.T) {
	h := model.BreadthHistory{{Date: dayN(1)}, {Date: dayN(2)}}
	for _, r := range CalculateReturns(h) {
		if r.OK {
			t.Errorf("%s: expected no data", r.Label)
		}
	}
}
