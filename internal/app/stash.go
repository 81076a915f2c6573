package app

import (
	"sync"
	"time"

	"github.com/MrWong99/lingualert/internal/recording"
)

// DefaultStashTTL is how long a finished recording waits for a report.
const DefaultStashTTL = 15 * time.Minute

type stashEntry struct {
	result  *recording.Result
	expires time.Time
}

// Stash keeps finished recordings until a report references them or they
// expire. A background sweeper removes expired entries until Close.
type Stash struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]stashEntry

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewStash creates a Stash whose entries live for ttl. A ttl <= 0 selects
// [DefaultStashTTL].
func NewStash(ttl time.Duration) *Stash {
	if ttl <= 0 {
		ttl = DefaultStashTTL
	}
	s := &Stash{
		ttl:     ttl,
		entries: make(map[string]stashEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.sweeper()
	return s
}

// Put stores r under its id, replacing an earlier entry.
func (s *Stash) Put(r *recording.Result) {
	if r == nil || r.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[r.ID] = stashEntry{result: r, expires: time.Now().Add(s.ttl)}
}

// Get returns the recording with the given id unless it has expired.
func (s *Stash) Get(id string) (*recording.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(s.entries, id)
		return nil, false
	}
	return e.result, true
}

// Delete removes the recording with the given id.
func (s *Stash) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of stored entries, expired or not.
func (s *Stash) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// SetTTL changes the lifetime of entries stored from now on.
func (s *Stash) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultStashTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

// Sweep removes expired entries and returns how many were removed.
func (s *Stash) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

func (s *Stash) sweeper() {
	defer close(s.done)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close stops the sweeper. Stored entries stay readable.
func (s *Stash) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
