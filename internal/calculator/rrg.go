package calculator

import (
	"fmt"
	"sort"
	"time"

	"BreadthSentinel/internal/model"
)

// Timeframe is the sampling period of a relative rotation graph.
type Timeframe string

const (
	Daily   Timeframe = "D"
	Weekly  Timeframe = "W" // last close of each week ending Friday
	Monthly Timeframe = "M" // last close of each calendar month
)

// ParseTimeframe accepts D, W or M.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case Daily, Weekly, Monthly:
		return tf, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
}

const (
	rrgRatioWindow    = 14
	rrgMomentumWindow = 9
	// RRGHistory is how many of the newest points RRG returns.
	RRGHistory = 30
)

// RRGPoint is one position of an index on the rotation graph.
type RRGPoint struct {
	Date     time.Time // period end
	Ratio    float64   // RS-Ratio, trend of relative strength, 100 = in line
	Momentum float64   // RS-Momentum, rate of change of the ratio
}

// RRG computes RS-Ratio and RS-Momentum of asset against bench from their
// IndexClose values, sampled at tf. RS = 100*asset/bench on dates both have;
// Ratio = 100*RS/SMA14(RS); Momentum = 100*Ratio/SMA9(Ratio). It returns at
// most RRGHistory points, oldest first.
func RRG(asset, bench model.BreadthHistory, tf Timeframe) []RRGPoint {
	a, b := resample(asset, tf), resample(bench, tf)
	benchAt := make(map[time.Time]float64, len(b))
	for _, p := range b {
		benchAt[p.Time] = p.Close
	}

	var dates []time.Time
	var rs []float64
	for _, p := range a {
		bc, ok := benchAt[p.Time]
		if !ok {
			continue
		}
		dates = append(dates, p.Time)
		rs = append(rs, 100*p.Close/bc)
	}

	ratio := make([]float64, len(rs))
	for i := rrgRatioWindow - 1; i < len(rs); i++ {
		ma, _ := CalculateSMA(rs[i-rrgRatioWindow+1:i+1], rrgRatioWindow)
		ratio[i] = 100 * rs[i] / ma
	}

	var out []RRGPoint
	first := rrgRatioWindow - 1 + rrgMomentumWindow - 1
	for i := first; i < len(rs); i++ {
		ma, _ := CalculateSMA(ratio[i-rrgMomentumWindow+1:i+1], rrgMomentumWindow)
		out = append(out, RRGPoint{Date: dates[i], Ratio: ratio[i], Momentum: 100 * ratio[i] / ma})
	}
	if len(out) > RRGHistory {
		out = out[len(out)-RRGHistory:]
	}
	return out
}

// Quadrant names the rotation phase of a point.
func Quadrant(p RRGPoint) string {
	switch {
	case p.Ratio >= 100 && p.Momentum >= 100:
		return "Leading"
	case p.Ratio >= 100:
		return "Weakening"
	case p.Momentum < 100:
		return "Lagging"
	default:
		return "Improving"
	}
}

// resample keeps the last positive IndexClose of each period, keyed by the
// period end date.
func resample(h model.BreadthHistory, tf Timeframe) []model.OHLCV {
	last := make(map[time.Time]float64)
	for _, r := range h {
		if r.IndexClose <= 0 {
			continue
		}
		last[periodEnd(r.Date, tf)] = r.IndexClose // h is date ordered
	}
	out := make([]model.OHLCV, 0, len(last))
	for d, c := range last {
		out = append(out, model.OHLCV{Time: d, Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func periodEnd(d time.Time, tf Timeframe) time.Time {
	d = model.DateOf(d)
	switch tf {
	case Weekly:
		return d.AddDate(0, 0, (int(time.Friday)-int(d.Weekday())+7)%7)
	case Monthly:
		return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}
