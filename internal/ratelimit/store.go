package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Result describes the state of a key's window after a hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Store counts hits per key in fixed windows.
type Store struct {
	mu      sync.Mutex
	max     int
	period  time.Duration
	windows map[string]*window
}

func NewStore(max int, period time.Duration) *Store {
	return &Store{max: max, period: period, windows: make(map[string]*window)}
}

// Hit records one request for key at now.
func (s *Store) Hit(key string, now time.Time) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.start.Add(s.period)) {
		w = &window{start: now}
		s.windows[key] = w
	}
	w.count++

	res := Result{
		Allowed: w.count <= s.max,
		Limit:   s.max,
		Reset:   w.start.Add(s.period),
	}
	if remaining := s.max - w.count; remaining > 0 {
		res.Remaining = remaining
	}
	return res
}

// Prune drops windows that ended before now and returns how many were removed.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, w := range s.windows {
		if !now.Before(w.start.Add(s.period)) {
			delete(s.windows, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
