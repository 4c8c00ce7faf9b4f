package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/admob-reporting/internal/jobs"
)

// Store is an in-memory implementation of RunStore.
// It is safe for concurrent use. Data is lost on restart; the durable record
// of a run is its log lines and the loaded table.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]*jobs.ReportRun
	maxRuns int
}

// NewStore creates a store that keeps at most maxRuns runs, evicting the
// oldest finished ones first. maxRuns <= 0 means unbounded.
func NewStore(maxRuns int) *Store {
	return &Store{
		runs:    make(map[string]*jobs.ReportRun),
		maxRuns: maxRuns,
	}
}

// SaveRun implements the RunStore interface.
func (s *Store) SaveRun(ctx context.Context, run *jobs.ReportRun) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Create a copy to avoid external modifications
	runCopy := *run
	s.runs[run.RunID] = &runCopy
	s.evict()

	return nil
}

// GetRun implements the RunStore interface.
func (s *Store) GetRun(ctx context.Context, runID string) (*jobs.ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", jobs.ErrRunNotFound, runID)
	}

	runCopy := *run
	return &runCopy, nil
}

// ListRuns implements the RunStore interface.
func (s *Store) ListRuns(ctx context.Context, filter jobs.RunFilter) ([]*jobs.ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.ReportRun{}
	for _, run := range s.runs {
		if filter.PublisherID != "" && run.PublisherID != filter.PublisherID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}

		runCopy := *run
		result = append(result, &runCopy)
	}
	sortNewestFirst(result)

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ReportRun{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// evict drops the oldest finished runs over the limit. Callers hold mu.
func (s *Store) evict() {
	if s.maxRuns <= 0 || len(s.runs) <= s.maxRuns {
		return
	}

	var finished []*jobs.ReportRun
	for _, run := range s.runs {
		if run.Terminal() {
			finished = append(finished, run)
		}
	}
	sortNewestFirst(finished)

	for i := len(finished) - 1; i >= 0 && len(s.runs) > s.maxRuns; i-- {
		delete(s.runs, finished[i].RunID)
	}
}

func sortNewestFirst(runs []*jobs.ReportRun) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}

// Ensure Store implements RunStore interface.
var _ jobs.RunStore = (*Store)(nil)
