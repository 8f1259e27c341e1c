package recorder

import (
	"time"

	"BreadthSentinel/internal/model"
)

// RunEvent describes one index run of the breadth pipeline.
type RunEvent struct {
	RunID            string
	Index            string
	Source           string // fetcher name
	StartedAt        time.Time
	FinishedAt       time.Time
	SymbolsRequested int
	SymbolsFetched   int
	SymbolsFailed    int
	RecordsWritten   int
	LatestDate       time.Time
	LatestPct        float64
	Err              string
}

// Recorder mirrors pipeline results into a queryable store for analysis.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordBreadth(index string, records model.BreadthHistory) error
	Close() error
}
