package dashboard

import (
	"net/http"
	"sort"

	"BreadthSentinel/internal/calculator"
	"BreadthSentinel/internal/model"

	"go.uber.org/zap"
)

type perfRow struct {
	Name, Slug string
	Date       string
	Breadth    float64
	Returns    []calculator.PeriodReturn
	RS         float64
	RSOK       bool
	yearly     calculator.PeriodReturn
}

type performanceData struct {
	Baseline string
	Periods  []string
	Rows     []perfRow
}

// buildPerformance returns one row per index that has closing levels, best
// 1Y return first; indices without a 1Y return follow in name order.
func buildPerformance(indices []model.Index, histories map[string]model.BreadthHistory, bench model.BreadthHistory) []perfRow {
	var rows []perfRow
	for _, idx := range indices {
		h := histories[idx.Slug]
		latest, ok := h.Latest()
		if !ok || latest.IndexClose <= 0 {
			continue
		}
		row := perfRow{
			Name:    idx.Name,
			Slug:    idx.Slug,
			Date:    latest.Date.Format(model.DateLayout),
			Breadth: latest.Percentage,
			Returns: calculator.CalculateReturns(h),
		}
		for _, r := range row.Returns {
			if r.Label == "1Y" {
				row.yearly = r
			}
		}
		row.RS, row.RSOK = calculator.RelativeStrength(h, bench, calculator.RSWindow)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].yearly, rows[j].yearly
		if a.OK != b.OK {
			return a.OK
		}
		if a.OK && a.Return != b.Return {
			return a.Return > b.Return
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	bench, err := s.baselineHistory()
	if err != nil {
		s.logger.Error("load baseline", zap.String("index", s.baseline.Name), zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	histories := make(map[string]model.BreadthHistory, len(s.indices))
	for _, idx := range s.indices {
		h, err := s.history(idx)
		if err != nil {
			s.logger.Error("load history", zap.String("index", idx.Name), zap.Error(err))
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		histories[idx.Slug] = h
	}

	data := performanceData{Baseline: s.baseline.Name, Rows: buildPerformance(s.indices, histories, bench)}
	if data.Baseline == "" {
		data.Baseline = "the baseline"
	}
	for _, p := range calculator.ReturnPeriods {
		data.Periods = append(data.Periods, p.Label)
	}
	s.render(w, "performance", data)
}
