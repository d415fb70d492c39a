package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/finance-bot/internal/jobs"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store is an in-memory implementation of RunStore.
// Data is lost on restart; run history is informational only.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*jobs.Run
	max  int
}

// NewStore creates a new in-memory run store keeping at most max runs.
// A max of zero keeps everything.
func NewStore(max int) *Store {
	return &Store{
		runs: make(map[string]*jobs.Run),
		max:  max,
	}
}

// SaveRun implements the RunStore interface.
func (s *Store) SaveRun(ctx context.Context, run *jobs.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("SaveRun: run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external modifications
	runCopy := *run
	s.runs[run.RunID] = &runCopy
	s.evictLocked()

	return nil
}

// evictLocked drops the oldest runs beyond the cap.
func (s *Store) evictLocked() {
	if s.max <= 0 || len(s.runs) <= s.max {
		return
	}
	all := s.sortedLocked()
	for _, r := range all[s.max:] {
		delete(s.runs, r.RunID)
	}
}

func (s *Store) sortedLocked() []*jobs.Run {
	all := make([]*jobs.Run, 0, len(s.runs))
	for _, r := range s.runs {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].StartedAt.Equal(all[j].StartedAt) {
			return all[i].RunID > all[j].RunID
		}
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	return all
}

// GetRun implements the RunStore interface.
func (s *Store) GetRun(ctx context.Context, runID string) (*jobs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("GetRun: %s: %w", runID, ErrRunNotFound)
	}

	runCopy := *run
	return &runCopy, nil
}

// ListRuns implements the RunStore interface.
func (s *Store) ListRuns(ctx context.Context, filter jobs.RunFilter) ([]*jobs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.Run{}
	for _, run := range s.sortedLocked() {
		if filter.Type != "" && run.Type != filter.Type {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runCopy := *run
		result = append(result, &runCopy)
	}

	// Apply limit and offset
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.Run{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Ensure Store implements RunStore interface.
var _ jobs.RunStore = (*Store)(nil)
