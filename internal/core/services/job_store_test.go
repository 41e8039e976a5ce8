package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/composedeck/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func pendingJob(id string) *domain.Job {
	return &domain.Job{ID: id, Status: domain.JobStatusPending, CreatedAt: time.Now()}
}

func finish(t *testing.T, s *JobStore, id string, status domain.JobStatus) {
	t.Helper()
	require.NoError(t, s.Update(id, func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		return nil
	}))
	require.NoError(t, s.Update(id, func(j *domain.Job) error {
		j.Status = status
		return nil
	}))
}

func TestJobStore_CreateDuplicate(t *testing.T) {
	s := NewJobStore()

	require.NoError(t, s.Create(pendingJob("a")))
	err := s.Create(pendingJob("a"))

	assert.ErrorIs(t, err, ErrDuplicateJob)
	assert.Equal(t, 1, s.Len())
}

func TestJobStore_GetReturnsCopy(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Create(pendingJob("a")))

	got, err := s.Get("a")
	require.NoError(t, err)
	got.Status = domain.JobStatusFailed
	got.Output = append(got.Output, "leak")

	again, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, again.Status)
	assert.Empty(t, again.Output)
}

func TestJobStore_GetNotFound(t *testing.T) {
	_, err := NewJobStore().Get("missing")

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStore_UpdateNotFound(t *testing.T) {
	err := NewJobStore().Update("missing", func(j *domain.Job) error { return nil })

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStore_UpdateMutatorErrorDiscardsChanges(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Create(pendingJob("a")))
	boom := errors.New("boom")

	err := s.Update("a", func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		j.Output = append(j.Output, "x")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	got, _ := s.Get("a")
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Empty(t, got.Output)
}

func TestJobStore_UpdateRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		setup  []domain.JobStatus
		next   domain.JobStatus
		wantOK bool
	}{
		{name: "Pending To Running", next: domain.JobStatusRunning, wantOK: true},
		{name: "Pending To Succeeded", next: domain.JobStatusSucceeded},
		{name: "Pending To Failed", next: domain.JobStatusFailed},
		{name: "Running Back To Pending", setup: []domain.JobStatus{domain.JobStatusRunning}, next: domain.JobStatusPending},
		{name: "Succeeded To Failed", setup: []domain.JobStatus{domain.JobStatusRunning, domain.JobStatusSucceeded}, next: domain.JobStatusFailed},
		{name: "Failed To Running", setup: []domain.JobStatus{domain.JobStatusRunning, domain.JobStatusFailed}, next: domain.JobStatusRunning},
		{name: "Unknown Status", next: domain.JobStatus("deploying")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewJobStore()
			require.NoError(t, s.Create(pendingJob("a")))
			for _, st := range tt.setup {
				st := st
				require.NoError(t, s.Update("a", func(j *domain.Job) error { j.Status = st; return nil }))
			}

			err := s.Update("a", func(j *domain.Job) error { j.Status = tt.next; return nil })

			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrIllegalTransition)
		})
	}
}

func TestJobStore_UpdateEnforcesProgressAndOutput(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Create(pendingJob("a")))
	require.NoError(t, s.Update("a", func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		j.Progress = 50
		j.Output = []string{"one", "two"}
		return nil
	}))

	err := s.Update("a", func(j *domain.Job) error { j.Progress = 40; return nil })
	assert.ErrorIs(t, err, ErrProgressRegressed)

	err = s.Update("a", func(j *domain.Job) error { j.Progress = 101; return nil })
	assert.ErrorIs(t, err, ErrProgressOutOfRange)

	err = s.Update("a", func(j *domain.Job) error { j.Output = j.Output[:1]; return nil })
	assert.ErrorIs(t, err, ErrOutputTruncated)
}

func TestJobStore_TerminalStampsCompletedAtOnce(t *testing.T) {
	clock := newFakeClock()
	s := NewJobStore().WithClock(clock.Now)
	require.NoError(t, s.Create(pendingJob("a")))

	running, _ := s.Get("a")
	assert.Nil(t, running.CompletedAt)

	finish(t, s, "a", domain.JobStatusSucceeded)
	got, _ := s.Get("a")

	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, clock.Now(), *got.CompletedAt)
	assert.Equal(t, 100, got.Progress)
}

func TestJobStore_FailedResetsProgress(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Create(pendingJob("a")))
	require.NoError(t, s.Update("a", func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		j.Progress = 70
		return nil
	}))

	require.NoError(t, s.Update("a", func(j *domain.Job) error {
		j.Status = domain.JobStatusFailed
		j.Error = "exit 1"
		return nil
	}))

	got, _ := s.Get("a")
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, "exit 1", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestJobStore_DeleteIsIdempotent(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Create(pendingJob("a")))

	s.Delete("a")
	s.Delete("a")

	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStore_SweepOlderThan(t *testing.T) {
	clock := newFakeClock()
	s := NewJobStore().WithClock(clock.Now)

	for _, id := range []string{"old-ok", "old-failed", "old-running", "old-pending"} {
		require.NoError(t, s.Create(pendingJob(id)))
	}
	finish(t, s, "old-ok", domain.JobStatusSucceeded)
	finish(t, s, "old-failed", domain.JobStatusFailed)
	require.NoError(t, s.Update("old-running", func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		return nil
	}))

	clock.Advance(2 * time.Hour)

	require.NoError(t, s.Create(pendingJob("fresh")))
	finish(t, s, "fresh", domain.JobStatusSucceeded)

	removed := s.SweepOlderThan(time.Hour)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.SweepOlderThan(time.Hour))
	for _, id := range []string{"old-running", "old-pending", "fresh"} {
		_, err := s.Get(id)
		assert.NoError(t, err, id)
	}
	for _, id := range []string{"old-ok", "old-failed"} {
		_, err := s.Get(id)
		assert.ErrorIs(t, err, ErrJobNotFound, id)
	}
}

func TestJobStore_ListNewestFirst(t *testing.T) {
	s := NewJobStore()
	base := time.Now()
	for i := 0; i < 3; i++ {
		job := pendingJob(fmt.Sprintf("job-%d", i))
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(job))
	}

	jobs := s.List()

	require.Len(t, jobs, 3)
	assert.Equal(t, "job-2", jobs[0].ID)
	assert.Equal(t, "job-0", jobs[2].ID)
}

func TestJobStore_ConcurrentReadersSeeConsistentRecords(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Create(pendingJob("a")))
	require.NoError(t, s.Update("a", func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		return nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			line := fmt.Sprintf("line-%d", i)
			_ = s.Update("a", func(j *domain.Job) error {
				j.Output = append(j.Output, line)
				j.Progress = i
				return nil
			})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				job, err := s.Get("a")
				if !assert.NoError(t, err) {
					return
				}
				// Output and progress are written together.
				assert.Equal(t, len(job.Output), job.Progress)
			}
		}()
	}
	wg.Wait()
}

func runningJob(t testing.TB, s *JobStore, id string) {
	t.Helper()
	require.NoError(t, s.Create(pendingJob(id)))
	require.NoError(t, s.Update(id, func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		return nil
	}))
}

func appendLine(s *JobStore, id, line string) error {
	return s.Update(id, func(j *domain.Job) error {
		j.Output = append(j.Output, line)
		return nil
	})
}

func TestJobStore_AppendCostDoesNotGrowWithOutput(t *testing.T) {
	s := NewJobStore()
	runningJob(t, s, "a")

	const lines = 50000
	start := time.Now()
	for i := 0; i < lines; i++ {
		require.NoError(t, appendLine(s, "a", fmt.Sprintf("line-%d", i)))
	}
	elapsed := time.Since(start)

	got, err := s.Get("a")
	require.NoError(t, err)
	require.Len(t, got.Output, lines)
	assert.Equal(t, "line-0", got.Output[0])
	assert.Equal(t, fmt.Sprintf("line-%d", lines-1), got.Output[lines-1])
	assert.Less(t, elapsed, 2*time.Second)
}

func TestJobStore_FailedAppendIsNotVisible(t *testing.T) {
	s := NewJobStore()
	runningJob(t, s, "a")
	require.NoError(t, appendLine(s, "a", "one"))

	boom := errors.New("boom")
	err := s.Update("a", func(j *domain.Job) error {
		j.Output = append(j.Output, "discarded")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := s.Get("a")
	assert.Equal(t, []string{"one"}, got.Output)

	require.NoError(t, appendLine(s, "a", "two"))
	got, _ = s.Get("a")
	assert.Equal(t, []string{"one", "two"}, got.Output)
}

func TestJobStore_ReadCopiesAreNotAffectedByLaterAppends(t *testing.T) {
	s := NewJobStore()
	runningJob(t, s, "a")
	require.NoError(t, appendLine(s, "a", "one"))

	before, _ := s.Get("a")
	listed := s.List()
	require.NoError(t, appendLine(s, "a", "two"))
	before.Output = append(before.Output, "reader-side")

	assert.Len(t, listed[0].Output, 1)
	got, _ := s.Get("a")
	assert.Equal(t, []string{"one", "two"}, got.Output)
}

func BenchmarkJobStore_AppendLine(b *testing.B) {
	s := NewJobStore()
	runningJob(b, s, "a")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := appendLine(s, "a", "pulling layer"); err != nil {
			b.Fatal(err)
		}
	}
}
