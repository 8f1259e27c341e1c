package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"BreadthSentinel/internal/calculator"
	"BreadthSentinel/internal/collector"
	"BreadthSentinel/internal/history"
	"BreadthSentinel/internal/model"
	"BreadthSentinel/internal/notifier"
	"BreadthSentinel/internal/recorder"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a run is triggered while another is active.
var ErrRunInProgress = errors.New("breadth run already in progress")

// SymbolSource resolves an index to its member tickers.
type SymbolSource interface {
	Symbols(ctx context.Context, idx model.Index) ([]string, error)
}

// Notifier delivers the run summary.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options configures where histories live and how much each run recomputes.
type Options struct {
	HistoryDir string
	Plan       history.PlanConfig
	Indices    []model.Index
	Location   *time.Location
}

// RunResult summarizes one index run.
type RunResult struct {
	Index   model.Index
	Stats   collector.CollectStats
	Written int // records computed and merged this run
	Kept    int // stored rows kept because the rerun saw fewer symbols
	Latest  model.BreadthRecord
	Prev    *model.BreadthRecord
}

// Scheduler manages the cron task and runs the breadth pipeline.
type Scheduler struct {
	Cron      *cron.Cron
	Resolver  SymbolSource
	Collector *collector.Collector
	Notifier  Notifier // nil disables notifications
	Recorder  recorder.Recorder
	Ctx       context.Context

	opts   Options
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex

	bgMu     sync.Mutex
	bg       sync.WaitGroup
	stopping bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, res SymbolSource, col *collector.Collector, n Notifier, rec recorder.Recorder, opts Options, logger *zap.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(opts.Location)),
		Resolver:  res,
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		opts:      opts,
		logger:    logger.Named("scheduler"),
		now:       time.Now,
	}
}

// RegisterAll registers the daily breadth task.
func (s *Scheduler) RegisterAll(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("indices", len(s.opts.Indices)))
}

// Stop stops the cron scheduler and waits for running cron and background
// tasks to finish. Triggers after Stop are ignored.
func (s *Scheduler) Stop() {
	s.bgMu.Lock()
	s.stopping = true
	s.bgMu.Unlock()

	<-s.Cron.Stop().Done()
	s.bg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunNow executes the daily task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

// Trigger starts the daily task in the background; Stop waits for it. It
// reports false when the scheduler is already stopping.
func (s *Scheduler) Trigger() bool {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.stopping {
		return false
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.dailyTask()
	}()
	return true
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunAll(s.Ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Warn("skipping trigger, previous run still active")
			return
		}
		s.logger.Error("daily run", zap.Error(err))
	}
}

// RunAll runs every configured index in order. A failing index is logged and
// recorded; the others still run. The returned error is non-nil only when the
// run could not start or ctx was cancelled.
func (s *Scheduler) RunAll(ctx context.Context) ([]RunResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	s.logger.Info("running breadth update", zap.Int("indices", len(s.opts.Indices)))
	results := make([]RunResult, 0, len(s.opts.Indices))
	snaps := make([]notifier.IndexSnapshot, 0, len(s.opts.Indices))
	for _, idx := range s.opts.Indices {
		res, err := s.runIndex(ctx, idx)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			s.logger.Error("index run failed", zap.String("index", idx.Name), zap.Error(err))
			snaps = append(snaps, notifier.IndexSnapshot{Name: idx.Name, Err: err})
			continue
		}
		results = append(results, res)
		snaps = append(snaps, notifier.IndexSnapshot{Name: idx.Name, Latest: res.Latest, Previous: res.Prev})
	}

	if s.Notifier != nil {
		report := notifier.FormatBreadthReport(s.now().In(s.opts.Location), snaps)
		if err := s.Notifier.SendWithRetry(ctx, report, 3); err != nil {
			s.logger.Error("send notification", zap.Error(err))
		}
	}
	return results, nil
}

// RunIndex runs the pipeline for a single index.
func (s *Scheduler) RunIndex(ctx context.Context, idx model.Index) (RunResult, error) {
	if !s.mu.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer s.mu.Unlock()
	return s.runIndex(ctx, idx)
}

func (s *Scheduler) runIndex(ctx context.Context, idx model.Index) (res RunResult, err error) {
	res.Index = idx
	evt := &recorder.RunEvent{
		RunID:     uuid.NewString(),
		Index:     idx.Name,
		Source:    s.Collector.Fetcher.Name(),
		StartedAt: s.now(),
	}
	log := s.logger.With(zap.String("index", idx.Name), zap.String("run_id", evt.RunID))
	defer func() {
		evt.FinishedAt = s.now()
		if err != nil {
			evt.Err = err.Error()
		}
		if recErr := s.Recorder.RecordRun(evt); recErr != nil {
			log.Error("record run", zap.Error(recErr))
		}
	}()

	symbols, err := s.Resolver.Symbols(ctx, idx)
	if err != nil {
		return res, fmt.Errorf("resolve symbols: %w", err)
	}
	if len(symbols) == 0 {
		return res, fmt.Errorf("index %q has no members", idx.Name)
	}

	path := s.HistoryPath(idx)
	existing, err := history.Load(path)
	if err != nil {
		return res, err
	}

	today := model.DateOf(s.now().In(s.opts.Location))
	plan := history.MakePlan(existing, today, s.opts.Plan)
	if plan.From.After(plan.To) {
		log.Info("history already current", zap.Time("latest", existing[len(existing)-1].Date))
		res.Latest, res.Prev = latestPair(existing)
		return res, nil
	}
	log.Info("planned run",
		zap.Int("symbols", len(symbols)),
		zap.String("fetch_start", plan.FetchStart.Format(model.DateLayout)),
		zap.String("from", plan.From.Format(model.DateLayout)),
		zap.String("to", plan.To.Format(model.DateLayout)))

	series, stats, err := s.Collector.Collect(ctx, symbols, plan.FetchStart, plan.To)
	res.Stats = stats
	evt.SymbolsRequested = stats.Requested
	evt.SymbolsFetched = len(stats.Fetched)
	evt.SymbolsFailed = len(stats.Failed)
	if err != nil {
		return res, err
	}
	if len(series) == 0 {
		return res, fmt.Errorf("no price data for any of %d symbols", len(symbols))
	}

	computed := calculator.ComputeBreadth(series, calculator.DateRange{From: plan.From, To: plan.To})
	if idx.Benchmark == "" {
		after, base := chainBase(existing, plan.From)
		calculator.AttachIndexClose(computed, calculator.EqualWeightIndex(series, after, plan.To, base))
	} else {
		bars, err := s.Collector.FetchOne(ctx, idx.Benchmark, plan.From, plan.To)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("benchmark unavailable", zap.String("benchmark", idx.Benchmark), zap.Error(err))
		} else {
			calculator.AttachIndexClose(computed, bars)
		}
	}

	accepted, kept := history.Reconcile(existing, computed)
	for _, r := range kept {
		log.Warn("kept stored row, rerun classified fewer symbols",
			zap.String("date", r.Date.Format(model.DateLayout)),
			zap.Int("stored_total", r.Total))
	}
	merged := history.Merge(existing, accepted)
	if err := history.Save(path, merged); err != nil {
		return res, err
	}
	if err := s.Recorder.RecordBreadth(idx.Name, accepted); err != nil {
		log.Error("record breadth", zap.Error(err))
	}

	res.Written = len(accepted)
	res.Kept = len(kept)
	res.Latest, res.Prev = latestPair(merged)
	evt.RecordsWritten = res.Written
	evt.LatestDate = res.Latest.Date
	evt.LatestPct = res.Latest.Percentage
	log.Info("index updated",
		zap.Int("records", res.Written),
		zap.Int("rows", len(merged)),
		zap.String("latest", res.Latest.Date.Format(model.DateLayout)),
		zap.Float64("pct", res.Latest.Percentage))
	return res, nil
}

// HistoryPath returns the history file of idx.
func (s *Scheduler) HistoryPath(idx model.Index) string {
	return filepath.Join(s.opts.HistoryDir, idx.File)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch strings.ToLower(fields[0]) {
	case "/breadth":
		snaps := make([]notifier.IndexSnapshot, 0, len(s.opts.Indices))
		for _, idx := range s.opts.Indices {
			h, err := history.Load(s.HistoryPath(idx))
			snap := notifier.IndexSnapshot{Name: idx.Name, Err: err}
			snap.Latest, snap.Previous = latestPair(h)
			snaps = append(snaps, snap)
		}
		return notifier.FormatBreadthReport(s.now().In(s.opts.Location), snaps)
	case "/run":
		if !s.Trigger() {
			return "Scheduler is shutting down."
		}
		return "⏳ Breadth update started, the summary follows when it finishes."
	default:
		return "Available commands:\n• /breadth latest breadth per index\n• /run recompute now"
	}
}

// chainBase returns where an equal-weighted index continues from: the last
// stored row before from that carries a close, or the day before from at
// the base level.
func chainBase(existing model.BreadthHistory, from time.Time) (time.Time, float64) {
	for i := len(existing) - 1; i >= 0; i-- {
		r := existing[i]
		if !r.Date.Before(from) {
			continue
		}
		if r.IndexClose > 0 {
			return r.Date, r.IndexClose
		}
		break
	}
	return from.AddDate(0, 0, -1), calculator.EqualWeightBase
}

func latestPair(h model.BreadthHistory) (model.BreadthRecord, *model.BreadthRecord) {
	latest, _ := h.Latest()
	if prev, ok := h.Previous(); ok {
		return latest, &prev
	}
	return latest, nil
}
