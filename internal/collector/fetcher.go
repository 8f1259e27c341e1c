package collector

import (
	"context"
	"time"

	"BreadthSentinel/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns date-ascending daily bars for symbol in [start, end].
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
