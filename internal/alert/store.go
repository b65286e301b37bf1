package alert

import (
	"stock-alert-bot/internal/types"
	"sync"
)

// Store is the process-wide set of active alerts, kept in registration order.
type Store struct {
	mu     sync.RWMutex
	alerts []types.Alert
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(a types.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

// Snapshot returns a copy of the active alerts, newest first.
func (s *Store) Snapshot() []types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Alert, 0, len(s.alerts))
	for i := len(s.alerts) - 1; i >= 0; i-- {
		out = append(out, s.alerts[i])
	}
	return out
}

// Remove deletes the alert with id and reports whether it was still present.
// Only the caller that gets true may act on the alert's trigger.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}
