package collector

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"BreadthSentinel/internal/model"

	"go.uber.org/zap"
)

// MockFetcher returns controllable data for development and testing.
// Symbols without an entry in Bars get a deterministic generated series.
type MockFetcher struct {
	Bars   map[string][]model.OHLCV
	Errors map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		out := make([]model.OHLCV, 0, len(bars))
		for _, b := range bars {
			d := model.DateOf(b.Time)
			if d.Before(model.DateOf(start)) || d.After(model.DateOf(end)) {
				continue
			}
			out = append(out, b)
		}
		return out, nil
	}
	return generateMockBars(symbol, start, end), nil
}

// Calls reports how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// generateMockBars produces weekday bars whose trend depends only on symbol
// and date, so overlapping requests agree.
func generateMockBars(symbol string, start, end time.Time) []model.OHLCV {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()
	base := 50 + float64(seed%950)
	drift := (float64(seed%7) - 3) * 0.0004
	epoch := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	var bars []model.OHLCV
	for d := model.DateOf(start); !d.After(model.DateOf(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		n := d.Sub(epoch).Hours() / 24
		p := base * (1 + drift*n)
		if p <= 1 {
			p = 1
		}
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
	}
	return bars
}

// Options tunes how politely the collector walks a universe.
type Options struct {
	ChunkSize  int           // symbols per batch before pausing
	ChunkDelay time.Duration // pause between batches
	Retries    int           // extra attempts per symbol
	RetryBase  time.Duration // first backoff, doubled on each retry
}

// DefaultOptions mirrors the batch size and delay the public data source tolerates.
func DefaultOptions() Options {
	return Options{ChunkSize: 50, ChunkDelay: time.Second, Retries: 2, RetryBase: time.Second}
}

// CollectStats summarizes one universe fetch.
type CollectStats struct {
	Requested int
	Fetched   []string
	Failed    map[string]error
}

// Collector walks a symbol universe sequentially and gathers price series.
type Collector struct {
	Fetcher Fetcher
	opts    Options
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options, logger *zap.Logger) *Collector {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Collector{
		Fetcher: fetcher,
		opts:    opts,
		logger:  logger.Named("collector"),
		sleep:   sleepCtx,
	}
}

// Collect fetches every symbol in [start, end]. A symbol that fails after all
// retries, or returns no bars, is logged and left out; the only error returned
// is cancellation of ctx.
func (c *Collector) Collect(ctx context.Context, symbols []string, start, end time.Time) (map[string]model.PriceSeries, CollectStats, error) {
	stats := CollectStats{Requested: len(symbols), Failed: make(map[string]error)}
	series := make(map[string]model.PriceSeries, len(symbols))
	chunks := (len(symbols) + c.opts.ChunkSize - 1) / c.opts.ChunkSize

	for i := 0; i < len(symbols); i += c.opts.ChunkSize {
		if i > 0 && c.opts.ChunkDelay > 0 {
			if err := c.sleep(ctx, c.opts.ChunkDelay); err != nil {
				return series, stats, err
			}
		}
		j := i + c.opts.ChunkSize
		if j > len(symbols) {
			j = len(symbols)
		}
		c.logger.Debug("downloading batch",
			zap.Int("batch", i/c.opts.ChunkSize+1),
			zap.Int("batches", chunks),
			zap.Int("size", j-i))

		for _, sym := range symbols[i:j] {
			bars, err := c.FetchOne(ctx, sym, start, end)
			if err != nil {
				if ctx.Err() != nil {
					return series, stats, ctx.Err()
				}
				c.logger.Warn("symbol skipped", zap.String("symbol", sym), zap.Error(err))
				stats.Failed[sym] = err
				continue
			}
			series[sym] = model.PriceSeries{Symbol: sym, DailyBars: bars, FetchedAt: time.Now()}
			stats.Fetched = append(stats.Fetched, sym)
		}
	}

	c.logger.Info("universe collected",
		zap.String("source", c.Fetcher.Name()),
		zap.Int("requested", stats.Requested),
		zap.Int("fetched", len(stats.Fetched)),
		zap.Int("failed", len(stats.Failed)))
	return series, stats, nil
}

// errNoData marks an empty but otherwise successful response.
var errNoData = errors.New("no bars returned")

// FetchOne fetches a single symbol with exponential backoff retry.
func (c *Collector) FetchOne(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			backoff := c.opts.RetryBase * time.Duration(1<<uint(attempt-1))
			c.logger.Debug("retrying symbol",
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
		bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, start, end)
		if err == nil && len(bars) == 0 {
			err = errNoData
		}
		if err == nil {
			return bars, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%d attempts: %w", c.opts.Retries+1, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
