package history

import (
	"time"

	"BreadthSentinel/internal/model"
)

// Merge overlays computed onto existing. Every date present in computed
// replaces the stored row; stored dates absent from computed are kept.
func Merge(existing, computed model.BreadthHistory) model.BreadthHistory {
	all := make(model.BreadthHistory, 0, len(existing)+len(computed))
	all = append(all, existing...)
	all = append(all, computed...)
	return normalize(all)
}

// Reconcile drops computed rows that would replace a stored row for the same
// date with a smaller Total, which happens when some symbols failed to fetch
// on a rerun. It returns the rows safe to merge and the stored rows kept.
func Reconcile(existing, computed model.BreadthHistory) (accepted, kept model.BreadthHistory) {
	stored := make(map[time.Time]model.BreadthRecord, len(existing))
	for _, r := range existing {
		stored[r.Date] = r
	}
	accepted = make(model.BreadthHistory, 0, len(computed))
	for _, r := range computed {
		if old, ok := stored[r.Date]; ok && r.Total < old.Total {
			kept = append(kept, old)
			continue
		}
		accepted = append(accepted, r)
	}
	return accepted, kept
}

// PlanConfig controls how much of a history a run recomputes.
type PlanConfig struct {
	Start         time.Time // first date computed for an empty history
	OverwriteDays int       // trailing stored rows recomputed on every run
	LookbackDays  int       // calendar days fetched before the first computed date
}

// Plan is the fetch window and compute range for one index run.
type Plan struct {
	FetchStart time.Time
	From       time.Time
	To         time.Time
}

// MakePlan decides what one run fetches and recomputes. An empty history is
// backfilled from cfg.Start. Otherwise the run recomputes from the date of
// the OverwriteDays-th newest stored row (or the day after the newest row when
// OverwriteDays is 0) through today.
func MakePlan(existing model.BreadthHistory, today time.Time, cfg PlanConfig) Plan {
	today = model.DateOf(today)
	if len(existing) == 0 {
		start := model.DateOf(cfg.Start)
		return Plan{FetchStart: start, From: start, To: today}
	}

	var from time.Time
	if cfg.OverwriteDays <= 0 {
		from = existing[len(existing)-1].Date.AddDate(0, 0, 1)
	} else {
		k := cfg.OverwriteDays
		if k > len(existing) {
			k = len(existing)
		}
		from = existing[len(existing)-k].Date
	}
	return Plan{
		FetchStart: from.AddDate(0, 0, -cfg.LookbackDays),
		From:       from,
		To:         today,
	}
}
