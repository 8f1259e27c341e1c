package model

import "time"

// BreadthRecord is one day of aggregated breadth for an index universe.
// Above + Below == Total always holds; symbols without enough history are
// not part of Total.
type BreadthRecord struct {
	Date       time.Time
	Percentage float64 // 0 ~ 100
	Above      int
	Below      int
	Total      int
	IndexClose float64 // benchmark close, 0 when unknown
}

// BreadthHistory is a date-ordered sequence of records, one per date.
type BreadthHistory []BreadthRecord

// Latest returns the newest record and whether one exists.
func (h BreadthHistory) Latest() (BreadthRecord, bool) {
	if len(h) == 0 {
		return BreadthRecord{}, false
	}
	return h[len(h)-1], true
}

// Previous returns the record before the newest one.
func (h BreadthHistory) Previous() (BreadthRecord, bool) {
	if len(h) < 2 {
		return BreadthRecord{}, false
	}
	return h[len(h)-2], true
}

// Since returns the suffix of h whose dates are on or after from.
func (h BreadthHistory) Since(from time.Time) BreadthHistory {
	for i, r := range h {
		if !r.Date.Before(from) {
			return h[i:]
		}
	}
	return nil
}

// Index describes one breadth universe and where its history lives.
type Index struct {
	Name      string
	Slug      string
	Source    IndexSource
	ListFile  string   // NSE constituent CSV, for SourceNSE
	Symbols   []string // fixed members, for SourceTheme
	Benchmark string   // optional ticker whose close is stored as IndexClose
	File      string   // history file name, relative to the history dir
}

// IndexSource says how an index's members are resolved.
type IndexSource string

const (
	SourceNSE   IndexSource = "NSE"
	SourceTheme IndexSource = "THEME"
)
