package builds

import (
	"sync/atomic"
	"time"
)

// snapshot is an immutable point-in-time view of the dataset. It is built
// fully off to the side and never mutated after publication, so readers can
// iterate it while a refresh publishes a replacement.
type snapshot struct {
	records      []Build
	byType       map[BuildType][]Build
	byDifficulty map[Difficulty][]Build
	updatedAt    time.Time
}

// Store owns the canonical record set. ReplaceAll is the only writer and
// publishes a whole new snapshot behind a single pointer swap; no reader
// ever observes a half-rebuilt index.
type Store struct {
	current atomic.Pointer[snapshot]
}

// NewStore returns an empty store. It stays empty until the first
// successful refresh; callers that need data must trigger one.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&snapshot{
		byType:       map[BuildType][]Build{},
		byDifficulty: map[Difficulty][]Build{},
	})
	return s
}

// ReplaceAll swaps the entire dataset and rebuilds the secondary indexes in
// one step. Insertion order of records is preserved, both in All and within
// each index bucket.
func (s *Store) ReplaceAll(records []Build) {
	next := &snapshot{
		records:      make([]Build, len(records)),
		byType:       make(map[BuildType][]Build),
		byDifficulty: make(map[Difficulty][]Build),
		updatedAt:    time.Now().UTC(),
	}
	copy(next.records, records)

	for _, b := range next.records {
		next.byType[b.BuildType] = append(next.byType[b.BuildType], b)
		next.byDifficulty[b.Difficulty] = append(next.byDifficulty[b.Difficulty], b)
	}

	s.current.Store(next)
}

// All returns the current snapshot's records. The slice belongs to the
// snapshot and must not be modified.
func (s *Store) All() []Build {
	return s.current.Load().records
}

// ByType returns the records of one build type, in insertion order.
func (s *Store) ByType(t BuildType) []Build {
	return s.current.Load().byType[t]
}

// ByDifficulty returns the records of one difficulty, in insertion order.
func (s *Store) ByDifficulty(d Difficulty) []Build {
	return s.current.Load().byDifficulty[d]
}

// Len reports how many records the current snapshot holds.
func (s *Store) Len() int {
	return len(s.current.Load().records)
}

// LastUpdated reports when the current snapshot was published; zero before
// the first ReplaceAll.
func (s *Store) LastUpdated() time.Time {
	return s.current.Load().updatedAt
}
