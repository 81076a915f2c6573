// Package mock provides a [report.Store] with error injection for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingualert/internal/report"
)

// Store wraps a [report.MemoryStore] and records calls.
type Store struct {
	mem  *report.MemoryStore
	once sync.Once

	mu sync.Mutex

	// CreateErr, if non-nil, is returned by Create after validation.
	CreateErr error

	// PingErr is returned by Ping.
	PingErr error

	// CreateCalls counts Create invocations.
	CreateCalls int
}

var _ report.Store = (*Store)(nil)

func (s *Store) store() *report.MemoryStore {
	s.once.Do(func() { s.mem = report.NewMemoryStore(0) })
	return s.mem
}

// Create implements report.Store.
func (s *Store) Create(ctx context.Context, r *report.Report) error {
	s.mu.Lock()
	s.CreateCalls++
	createErr := s.CreateErr
	s.mu.Unlock()
	if createErr != nil {
		if err := r.Validate(); err != nil {
			return err
		}
		return createErr
	}
	return s.store().Create(ctx, r)
}

// Get implements report.Store.
func (s *Store) Get(ctx context.Context, id string) (*report.Report, error) {
	return s.store().Get(ctx, id)
}

// Recent implements report.Store.
func (s *Store) Recent(ctx context.Context, limit int) ([]report.Report, error) {
	return s.store().Recent(ctx, limit)
}

// Ping implements report.Store.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PingErr
}

// Len returns the number of stored reports.
func (s *Store) Len() int { return s.store().Len() }
