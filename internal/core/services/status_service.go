package services

import (
	"context"
	"errors"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
)

// StatusQueryService answers polling requests from the store. When an audit
// log is given, jobs that have already been swept are answered from it.
type StatusQueryService struct {
	store    *JobStore
	auditLog ports.DeploymentLogRepository
}

func NewStatusQueryService(store *JobStore, auditLog ports.DeploymentLogRepository) *StatusQueryService {
	return &StatusQueryService{store: store, auditLog: auditLog}
}

func (s *StatusQueryService) GetStatus(ctx context.Context, jobID string) (*ports.JobStatusView, error) {
	job, err := s.store.Get(jobID)
	if err == nil {
		return viewFromJob(job), nil
	}
	if !errors.Is(err, ErrJobNotFound) || s.auditLog == nil {
		return nil, err
	}

	entry, logErr := s.auditLog.GetByJobID(ctx, jobID)
	if logErr != nil || entry == nil {
		return nil, ErrJobNotFound
	}
	return viewFromLog(entry), nil
}

func viewFromJob(job *domain.Job) *ports.JobStatusView {
	return &ports.JobStatusView{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Output:      job.OutputText(),
		Completed:   job.Status.IsTerminal(),
		Error:       job.Error,
		Command:     job.Command,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
}

func viewFromLog(entry *domain.DeploymentLog) *ports.JobStatusView {
	progress := 0
	if entry.Status == domain.JobStatusSucceeded {
		progress = 100
	}
	return &ports.JobStatusView{
		JobID:       entry.JobID,
		Status:      entry.Status,
		Progress:    progress,
		Output:      entry.Output,
		Completed:   entry.Status.IsTerminal(),
		Error:       entry.Error,
		Command:     entry.Command,
		CreatedAt:   entry.CreatedAt,
		CompletedAt: entry.CompletedAt,
	}
}
