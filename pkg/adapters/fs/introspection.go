package fs

import (
	"os"
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string     `json:"path"`
	StoreDir      string     `json:"store_dir"`
	Notes         int        `json:"notes"`
	Fingerprints  int        `json:"fingerprints"`
	WatcherActive bool       `json:"watcher_active"`
	LastScan      *time.Time `json:"last_scan,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := 0
	if entries, err := os.ReadDir(s.Dir()); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				notes++
			}
		}
	}

	return StoreState{
		Path:          s.Path,
		StoreDir:      s.Dir(),
		Notes:         notes,
		Fingerprints:  s.fingerprints.len(),
		WatcherActive: s.watcherActive,
		LastScan:      s.lastScan,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

func (s *Store) recordScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastScan = &now
}
