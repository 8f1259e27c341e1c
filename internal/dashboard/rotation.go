package dashboard

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"BreadthSentinel/internal/calculator"
	"BreadthSentinel/internal/model"

	"go.uber.org/zap"
)

const (
	rrgSize     = 640
	defaultTail = 5
	maxTail     = 12
)

var trailColors = []string{"#4c9be8", "#f5a623", "#bd10e0", "#50e3c2", "#e94e77", "#b8e986", "#9013fe", "#f8e71c"}

type timeframeOption struct {
	Value, Label string
	Selected     bool
}

type quadrantRect struct {
	Name, Fill     string
	X, Y, W, H     float64
	LabelX, LabelY float64
}

type rrgChart struct {
	ViewBox   string
	Quadrants []quadrantRect
}

type rrgSeries struct {
	Name, Slug, Color string
	Date              string
	Ratio, Momentum   float64
	Quadrant          string
	Points            string
	HeadX, HeadY      float64

	trail []calculator.RRGPoint
}

type rotationData struct {
	Baseline   string
	Timeframes []timeframeOption
	Tail       int
	MaxTail    int
	Chart      rrgChart
	Series     []rrgSeries
}

// parseRotationQuery reads tf (D, W or M, default W) and tail (1..12,
// default 5).
func parseRotationQuery(r *http.Request) (calculator.Timeframe, int, error) {
	tf := calculator.Weekly
	if v := r.URL.Query().Get("tf"); v != "" {
		parsed, err := calculator.ParseTimeframe(strings.ToUpper(v))
		if err != nil {
			return "", 0, err
		}
		tf = parsed
	}
	tail := defaultTail
	if v := r.URL.Query().Get("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTail {
			return "", 0, fmt.Errorf("tail must be between 1 and %d", maxTail)
		}
		tail = n
	}
	return tf, tail, nil
}

func (s *Server) handleRotation(w http.ResponseWriter, r *http.Request) {
	tf, tail, err := parseRotationQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bench, err := s.baselineHistory()
	if err != nil {
		s.logger.Error("load baseline", zap.String("index", s.baseline.Name), zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	data := rotationData{Baseline: s.baseline.Name, Tail: tail, MaxTail: maxTail}
	if data.Baseline == "" {
		data.Baseline = "the baseline"
	}
	for _, o := range []timeframeOption{{Value: "D", Label: "Daily"}, {Value: "W", Label: "Weekly"}, {Value: "M", Label: "Monthly"}} {
		o.Selected = calculator.Timeframe(o.Value) == tf
		data.Timeframes = append(data.Timeframes, o)
	}

	for _, idx := range s.indices {
		if idx.Slug == s.baseline.Slug || len(bench) == 0 {
			continue
		}
		h, err := s.history(idx)
		if err != nil {
			s.logger.Error("load history", zap.String("index", idx.Name), zap.Error(err))
			continue
		}
		points := calculator.RRG(h, bench, tf)
		if len(points) == 0 {
			continue
		}
		if len(points) > tail {
			points = points[len(points)-tail:]
		}
		head := points[len(points)-1]
		data.Series = append(data.Series, rrgSeries{
			Name:     idx.Name,
			Slug:     idx.Slug,
			Color:    trailColors[len(data.Series)%len(trailColors)],
			Date:     head.Date.Format(model.DateLayout),
			Ratio:    head.Ratio,
			Momentum: head.Momentum,
			Quadrant: calculator.Quadrant(head),
			trail:    points,
		})
	}
	data.Chart = layoutRRG(data.Series)
	s.render(w, "rotation", data)
}

// layoutRRG fits every trail into a square plot centred on (100, 100) and
// fills in the series' SVG coordinates.
func layoutRRG(series []rrgSeries) rrgChart {
	span := 1.0
	for _, sr := range series {
		for _, p := range sr.trail {
			span = math.Max(span, math.Abs(p.Ratio-100))
			span = math.Max(span, math.Abs(p.Momentum-100))
		}
	}
	span *= 1.1
	x := func(ratio float64) float64 { return (ratio - 100 + span) / (2 * span) * rrgSize }
	y := func(mom float64) float64 { return rrgSize - (mom-100+span)/(2*span)*rrgSize }

	for i := range series {
		var b strings.Builder
		for j, p := range series[i].trail {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.1f,%.1f", x(p.Ratio), y(p.Momentum))
		}
		series[i].Points = b.String()
		series[i].HeadX, series[i].HeadY = x(series[i].Ratio), y(series[i].Momentum)
	}

	half := float64(rrgSize) / 2
	quad := func(name, fill string, qx, qy float64) quadrantRect {
		return quadrantRect{Name: name, Fill: fill, X: qx, Y: qy, W: half, H: half, LabelX: qx + half/2, LabelY: qy + half/2}
	}
	return rrgChart{
		ViewBox: fmt.Sprintf("0 0 %d %d", rrgSize, rrgSize),
		Quadrants: []quadrantRect{
			quad("Improving", "#4c9be8", 0, 0),
			quad("Leading", "#21c354", half, 0),
			quad("Lagging", "#ff4b4b", 0, half),
			quad("Weakening", "#f5a623", half, half),
		},
	}
}
