package dashboard

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"BreadthSentinel/internal/history"
	"BreadthSentinel/internal/model"
)

type cached struct {
	modTime time.Time
	size    int64
	history model.BreadthHistory
}

// store caches history files and reloads one when its mtime or size changes.
type store struct {
	mu      sync.RWMutex
	entries map[string]cached
}

func newStore() *store {
	return &store{entries: make(map[string]cached)}
}

// load returns the history at path. A missing file is an empty history.
func (s *store) load(path string) (model.BreadthHistory, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	c, ok := s.entries[path]
	s.mu.RUnlock()
	if ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.history, nil
	}

	h, err := history.Load(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.entries[path] = cached{modTime: info.ModTime(), size: info.Size(), history: h}
	s.mu.Unlock()
	return h, nil
}
