// Package prompt manages versioned grading instructions. The pipeline
// consumes instruction text as an opaque string; this package owns versioning
// and the quality gate that decides when an external tuner may propose a
// revision.
package prompt

import (
	"sync"
	"time"
)

// Record is one versioned instruction.
type Record struct {
	Subject   string    `json:"subject"`
	Version   int       `json:"version"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store holds instructions keyed by subject. In-memory; production
// deployments wrap it with their own persistence. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record), now: time.Now}
}

// Get returns the current instruction for a subject.
func (s *Store) Get(subject string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[subject]
	return rec, ok
}

// CreateOrBump stores text under subject. A new subject starts at version 1;
// changed text bumps the version; identical text is a no-op returning the
// existing record.
func (s *Store) CreateOrBump(subject, text string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[subject]
	if ok && rec.Text == text {
		return rec
	}

	rec = Record{
		Subject:   subject,
		Version:   rec.Version + 1,
		Text:      text,
		UpdatedAt: s.now(),
	}
	s.records[subject] = rec
	return rec
}
