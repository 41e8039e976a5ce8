package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/composedeck/backend/internal/domain"
)

// JobStore is the registry of in-flight and recently finished jobs. Records
// never leave the store by reference: Get and List hand out copies and all
// writes go through Update.
type JobStore struct {
	jobs map[string]*domain.Job
	mu   sync.RWMutex
	now  func() time.Time
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*domain.Job),
		now:  time.Now,
	}
}

// WithClock replaces the clock used by SweepOlderThan.
func (s *JobStore) WithClock(now func() time.Time) *JobStore {
	s.now = now
	return s
}

func (s *JobStore) Create(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *JobStore) Get(id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// Update applies fn to a working copy of the job and commits it only when fn
// succeeds and the result respects the status lifecycle. CompletedAt is
// stamped on the first move into a terminal state.
//
// The working copy shares its Output backing array with the stored record,
// so appending a line is amortised O(1). fn may append to Output but must
// not rewrite lines already captured.
func (s *JobStore) Update(id string, fn func(job *domain.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.jobs[id]
	if !exists {
		return ErrJobNotFound
	}

	next := current.WorkingCopy()
	if err := fn(next); err != nil {
		return err
	}

	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	if !next.Status.IsValid() || !current.Status.CanTransitionTo(next.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current.Status, next.Status)
	}
	if next.Progress < 0 || next.Progress > 100 {
		return fmt.Errorf("%w: %d", ErrProgressOutOfRange, next.Progress)
	}
	if current.Status == domain.JobStatusRunning && next.Status == domain.JobStatusRunning && next.Progress < current.Progress {
		return fmt.Errorf("%w: %d -> %d", ErrProgressRegressed, current.Progress, next.Progress)
	}
	if len(next.Output) < len(current.Output) {
		return ErrOutputTruncated
	}

	switch next.Status {
	case domain.JobStatusSucceeded:
		next.Progress = 100
		next.Error = ""
	case domain.JobStatusFailed:
		next.Progress = 0
	}
	if next.Status.IsTerminal() {
		if next.CompletedAt == nil {
			t := s.now()
			next.CompletedAt = &t
		}
	} else {
		next.CompletedAt = nil
		next.Error = ""
	}

	s.jobs[id] = next
	return nil
}

func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
}

// SweepOlderThan removes terminal jobs that completed more than age ago.
// Active jobs are kept regardless of age.
func (s *JobStore) SweepOlderThan(age time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-age)
	removed := 0
	for id, job := range s.jobs {
		if !job.Status.IsTerminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// List returns copies of every tracked job, newest first.
func (s *JobStore) List() []*domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.jobs)
}
