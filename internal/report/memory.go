package report

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// DefaultMemoryCapacity bounds a [MemoryStore] created with capacity 0.
const DefaultMemoryCapacity = 1000

// MemoryStore keeps reports in process memory. It is used when no database
// is configured; the oldest report is evicted once capacity is reached.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	reports  map[string]Report
	order    []string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store holding at most capacity reports.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity, reports: make(map[string]Report)}
}

// Create implements [Store].
func (s *MemoryStore) Create(_ context.Context, r *Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}
	if len(s.order) >= s.capacity {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	s.reports[r.ID] = *r
	s.order = append(s.order, r.ID)
	return nil
}

// Get implements [Store].
func (s *MemoryStore) Get(_ context.Context, id string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Recent implements [Store].
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	s.mu.Lock()
	out := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b Report) int { return b.Timestamp.Compare(a.Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping implements [Store]. Memory is always reachable.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of stored reports.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
