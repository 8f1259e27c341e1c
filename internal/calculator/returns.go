package calculator

import (
	"time"

	"BreadthSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// ReturnPeriod is a named calendar lookback.
type ReturnPeriod struct {
	Label string
	Days  int
}

// ReturnPeriods are the lookbacks shown on the dashboard performance strip.
var ReturnPeriods = []ReturnPeriod{
	{"1D", 1},
	{"1W", 7},
	{"1M", 30},
	{"3M", 90},
	{"6M", 180},
	{"1Y", 365},
	{"3Y", 365 * 3},
	{"5Y", 365 * 5},
}

// PeriodReturn is the benchmark percentage change over one lookback.
// OK is false when the history does not reach back far enough.
type PeriodReturn struct {
	Label  string
	Return float64
	OK     bool
}

// CalculateReturns measures the change in IndexClose from the last record on
// or before (latest date - period) to the latest record carrying a close.
func CalculateReturns(history model.BreadthHistory) []PeriodReturn {
	out := make([]PeriodReturn, len(ReturnPeriods))
	for i, p := range ReturnPeriods {
		out[i].Label = p.Label
	}

	latestIdx := latestClose(history)
	if latestIdx < 0 {
		return out
	}
	latest := history[latestIdx]

	for i, p := range ReturnPeriods {
		past, ok := closeOnOrBefore(history[:latestIdx], latest.Date.AddDate(0, 0, -p.Days))
		if !ok {
			continue
		}
		ret, _ := decimal.NewFromFloat(latest.IndexClose).
			Sub(decimal.NewFromFloat(past)).
			Div(decimal.NewFromFloat(past)).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			Float64()
		out[i].Return = ret
		out[i].OK = true
	}
	return out
}

func closeOnOrBefore(history model.BreadthHistory, target time.Time) (float64, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if r.Date.After(target) || r.IndexClose <= 0 {
			continue
		}
		return r.IndexClose, true
	}
	return 0, false
}

// RSWindow is the lookback, in calendar days, of RelativeStrength.
const RSWindow = 20

// RelativeStrength compares how asset moved against bench over the last days
// calendar days: the percentage change of the asset/bench close ratio. OK is
// false when either history lacks closes that far back.
func RelativeStrength(asset, bench model.BreadthHistory, days int) (float64, bool) {
	aIdx, bIdx := latestClose(asset), latestClose(bench)
	if aIdx < 0 || bIdx < 0 {
		return 0, false
	}
	a, b := asset[aIdx], bench[bIdx]
	aPast, ok := closeOnOrBefore(asset[:aIdx], a.Date.AddDate(0, 0, -days))
	if !ok {
		return 0, false
	}
	bPast, ok := closeOnOrBefore(bench[:bIdx], b.Date.AddDate(0, 0, -days))
	if !ok {
		return 0, false
	}
	now := decimal.NewFromFloat(a.IndexClose).Div(decimal.NewFromFloat(b.IndexClose))
	then := decimal.NewFromFloat(aPast).Div(decimal.NewFromFloat(bPast))
	rs, _ := now.Sub(then).Div(then).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return rs, true
}

func latestClose(h model.BreadthHistory) int {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].IndexClose > 0 {
			return i
		}
	}
	return -1
}
