package calculator

import (
	"sort"
	"time"

	"BreadthSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// EqualWeightBase is the starting level of an equal-weighted index.
const EqualWeightBase = 1000.0

// EqualWeightIndex chains the average daily return of all constituents into
// an index level for every date in (after, to]. The level before the first
// date is base (EqualWeightBase when base <= 0). Each step is rounded to two
// decimals, so continuing from a stored level reproduces the same values.
// Dates where no constituent has a previous close carry no level.
func EqualWeightIndex(series map[string]model.PriceSeries, after, to time.Time, base float64) []model.OHLCV {
	if base <= 0 {
		base = EqualWeightBase
	}
	after, to = model.DateOf(after), model.DateOf(to)

	symbols := make([]string, 0, len(series))
	for sym := range series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// per-date returns appended in symbol order keep the float sums stable
	returns := make(map[time.Time][]float64)
	for _, sym := range symbols {
		bars := normalizeBars(series[sym].DailyBars)
		for i := 1; i < len(bars); i++ {
			d := bars[i].Time
			if !d.After(after) || d.After(to) {
				continue
			}
			returns[d] = append(returns[d], bars[i].Close/bars[i-1].Close-1)
		}
	}

	dates := make([]time.Time, 0, len(returns))
	for d := range returns {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	level := decimal.NewFromFloat(base)
	out := make([]model.OHLCV, 0, len(dates))
	for _, d := range dates {
		rs := returns[d]
		var sum float64
		for _, r := range rs {
			sum += r
		}
		level = level.Mul(decimal.NewFromFloat(1 + sum/float64(len(rs)))).Round(2)
		c, _ := level.Float64()
		out = append(out, model.OHLCV{Time: d, Open: c, High: c, Low: c, Close: c})
	}
	return out
}
