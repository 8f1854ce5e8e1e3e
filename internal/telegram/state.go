package telegram

import (
	"sync"
	"time"
)

// PeriodState remembers the start date each user picked while choosing a
// period. It is safe for concurrent use.
type PeriodState struct {
	mu   sync.Mutex
	from map[int64]time.Time
}

// NewPeriodState returns an empty PeriodState.
func NewPeriodState() *PeriodState {
	return &PeriodState{from: make(map[int64]time.Time)}
}

// SetFrom records the start date for user.
func (s *PeriodState) SetFrom(user int64, d time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from[user] = d
}

// Take returns and clears the start date for user.
func (s *PeriodState) Take(user int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.from[user]
	delete(s.from, user)
	return d, ok
}

// Clear forgets any pending selection of user.
func (s *PeriodState) Clear(user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.from, user)
}
