package history

import (
	"fmt"
	"time"

	"BreadthSentinel/internal/model"

	"github.com/bmatcuk/doublestar/v4"
)

// RemoveDate deletes the row for date from the file at path and reports
// whether the file changed.
func RemoveDate(path string, date time.Time) (bool, error) {
	h, err := Load(path)
	if err != nil {
		return false, err
	}
	date = model.DateOf(date)
	kept := make(model.BreadthHistory, 0, len(h))
	for _, r := range h {
		if !r.Date.Equal(date) {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(h) {
		return false, nil
	}
	if err := Save(path, kept); err != nil {
		return false, err
	}
	return true, nil
}

// Prune removes date from every history file matching the glob pattern and
// returns the files it changed. A file that fails to load is reported and
// the rest are still processed.
func Prune(pattern string, date time.Time) (changed []string, err error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	var firstErr error
	for _, path := range matches {
		ok, err := RemoveDate(path, date)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("prune %s: %w", path, err)
			}
			continue
		}
		if ok {
			changed = append(changed, path)
		}
	}
	return changed, firstErr
}
