package storage

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/captioner/internal/models"
)

// RunStore keeps caption runs in memory until their archive is collected.
// Runs older than the TTL are dropped, and once MaxRuns are held the oldest
// run is evicted to make room. Zero limits disable the bound.
type RunStore struct {
	runs    map[string]*models.CaptionRun
	mu      sync.RWMutex
	maxRuns int
	ttl     time.Duration

	now func() time.Time
}

func New(maxRuns int, ttl time.Duration) *RunStore {
	return &RunStore{
		runs:    make(map[string]*models.CaptionRun),
		maxRuns: maxRuns,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Add assigns the run a new ID and stores it
func (s *RunStore) Add(run *models.CaptionRun) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	for s.maxRuns > 0 && len(s.runs) >= s.maxRuns {
		s.evictOldestLocked()
	}

	run.ID = uuid.NewString()
	s.runs[run.ID] = run
	return run.ID
}

func (s *RunStore) Get(runID string) (*models.CaptionRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.runs[runID]
	if !exists || s.expired(run) {
		return nil, false
	}
	return run, true
}

// List returns all live runs, oldest first
func (s *RunStore) List() []*models.CaptionRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	result := make([]*models.CaptionRun, 0, len(s.runs))
	for _, v := range s.runs {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Take removes and returns a run
func (s *RunStore) Take(runID string) (*models.CaptionRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, exists := s.runs[runID]
	if !exists {
		return nil, false
	}
	delete(s.runs, runID)
	if s.expired(run) {
		return nil, false
	}
	return run, true
}

func (s *RunStore) Delete(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.runs[runID]
	delete(s.runs, runID)
	return exists
}

func (s *RunStore) expired(run *models.CaptionRun) bool {
	return s.ttl > 0 && s.now().Sub(run.CreatedAt) > s.ttl
}

func (s *RunStore) pruneLocked() {
	for id, run := range s.runs {
		if s.expired(run) {
			slog.Info("Evicting expired caption run", "batch_id", id, "created_at", run.CreatedAt)
			delete(s.runs, id)
		}
	}
}

func (s *RunStore) evictOldestLocked() {
	var oldest *models.CaptionRun
	for _, run := range s.runs {
		if oldest == nil || run.CreatedAt.Before(oldest.CreatedAt) {
			oldest = run
		}
	}
	if oldest == nil {
		return
	}
	slog.Warn("Run store full, evicting oldest caption run", "batch_id", oldest.ID, "max_runs", s.maxRuns)
	delete(s.runs, oldest.ID)
}
