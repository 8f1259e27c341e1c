package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"BreadthSentinel/internal/calculator"
	"BreadthSentinel/internal/model"

	"go.uber.org/zap"
)

// Server renders breadth histories from the history directory.
type Server struct {
	indices     []model.Index
	dir         string
	displayFrom time.Time
	baseline    model.Index
	store       *store
	logger      *zap.Logger
}

// BaselineSlug is the index other indices are compared with unless
// SetBaseline picks another.
const BaselineSlug = "nifty-50"

// NewServer creates a dashboard over indices. The first index is the default page.
func NewServer(indices []model.Index, historyDir string, displayFrom time.Time, logger *zap.Logger) *Server {
	s := &Server{
		indices:     indices,
		dir:         historyDir,
		displayFrom: model.DateOf(displayFrom),
		store:       newStore(),
		logger:      logger.Named("dashboard"),
	}
	for _, idx := range indices {
		if idx.Slug == BaselineSlug {
			s.baseline = idx
		}
	}
	return s
}

// SetBaseline sets the index used for relative strength and rotation. It
// need not be one of the served indices, only have a history file.
func (s *Server) SetBaseline(idx model.Index) {
	s.baseline = idx
}

// Handler returns the HTTP routes of the dashboard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /performance", s.handlePerformance)
	mux.HandleFunc("GET /rotation", s.handleRotation)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown dashboard: %w", err)
		}
		return nil
	}
}

// lookup resolves the index query parameter; empty selects the default index.
func (s *Server) lookup(slug string) (model.Index, bool) {
	if len(s.indices) == 0 {
		return model.Index{}, false
	}
	if slug == "" {
		return s.indices[0], true
	}
	for _, idx := range s.indices {
		if idx.Slug == slug {
			return idx, true
		}
	}
	return model.Index{}, false
}

func (s *Server) history(idx model.Index) (model.BreadthHistory, error) {
	h, err := s.store.load(filepath.Join(s.dir, idx.File))
	if err != nil {
		return nil, err
	}
	return h.Since(s.displayFrom), nil
}

type indexOption struct {
	Name, Slug string
	Selected   bool
}

type card struct {
	Key, Label, Value, Delta, Class string
}

// baselineHistory is nil when no baseline is set or it has no file yet.
func (s *Server) baselineHistory() (model.BreadthHistory, error) {
	if s.baseline.File == "" {
		return nil, nil
	}
	return s.history(s.baseline)
}

type pageData struct {
	Indices       []indexOption
	Current       model.Index
	NoData        bool
	Updated       string
	From          string
	Rows          int
	Cards         []card
	Chart         chart
	Participation participationChart
	Returns       []calculator.PeriodReturn
	Constituents  []string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.lookup(r.URL.Query().Get("index"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h, err := s.history(idx)
	if err != nil {
		s.logger.Error("load history", zap.String("index", idx.Name), zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	data := pageData{Current: idx, NoData: len(h) == 0, Rows: len(h)}
	if idx.Source == model.SourceTheme {
		data.Constituents = idx.Symbols
	}
	for _, o := range s.indices {
		data.Indices = append(data.Indices, indexOption{Name: o.Name, Slug: o.Slug, Selected: o.Slug == idx.Slug})
	}
	if !data.NoData {
		latest, _ := h.Latest()
		data.Updated = latest.Date.Format(model.DateLayout)
		data.From = h[0].Date.Format(model.DateLayout)
		data.Cards = buildCards(h)
		data.Chart = buildChart(h)
		data.Participation = buildParticipation(h)
		if latest.IndexClose > 0 {
			data.Returns = calculator.CalculateReturns(h)
		}
	}

	s.render(w, "index", data)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render page", zap.String("page", name), zap.Error(err))
	}
}

func buildCards(h model.BreadthHistory) []card {
	latest, _ := h.Latest()
	prev, hasPrev := h.Previous()

	intCard := func(key, label string, cur, old int) card {
		c := card{Key: key, Label: label, Value: fmt.Sprintf("%d", cur)}
		if hasPrev {
			c.Delta, c.Class = delta(float64(cur-old), "%+.0f")
		}
		return c
	}
	pct := card{Key: "pct", Label: "Breadth %", Value: fmt.Sprintf("%.2f%%", latest.Percentage)}
	if hasPrev {
		pct.Delta, pct.Class = delta(latest.Percentage-prev.Percentage, "%+.2f%%")
	}
	return []card{
		intCard("total", "Total Stocks", latest.Total, prev.Total),
		intCard("above", "Above 200 SMA", latest.Above, prev.Above),
		intCard("below", "Below 200 SMA", latest.Below, prev.Below),
		pct,
	}
}

func signedPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func delta(v float64, format string) (string, string) {
	switch {
	case v > 0:
		return fmt.Sprintf(format, v), "up"
	case v < 0:
		return fmt.Sprintf(format, v), "down"
	default:
		return fmt.Sprintf(format, v), "flat"
	}
}

// Record is the JSON form of one breadth row.
type Record struct {
	Date       string  `json:"date"`
	Percentage float64 `json:"percentage"`
	Above      int     `json:"above"`
	Below      int     `json:"below"`
	Total      int     `json:"total"`
	IndexClose float64 `json:"index_close,omitempty"`
}

// RecordsJSON converts a history into its API representation.
func RecordsJSON(h model.BreadthHistory) []Record {
	out := make([]Record, 0, len(h))
	for _, r := range h {
		out = append(out, Record{
			Date:       r.Date.Format(model.DateLayout),
			Percentage: r.Percentage,
			Above:      r.Above,
			Below:      r.Below,
			Total:      r.Total,
			IndexClose: r.IndexClose,
		})
	}
	return out
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.lookup(r.URL.Query().Get("index"))
	if !ok {
		http.Error(w, `{"error":"unknown index"}`, http.StatusNotFound)
		return
	}
	h, err := s.history(idx)
	if err != nil {
		s.logger.Error("load history", zap.String("index", idx.Name), zap.Error(err))
		http.Error(w, `{"error":"history unavailable"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"index":   idx.Name,
		"slug":    idx.Slug,
		"records": RecordsJSON(h),
	}); err != nil {
		s.logger.Error("encode history", zap.Error(err))
	}
}
