package db

import (
	"context"
	"sync"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
)

// MemoryLogRepository keeps the audit log in process memory. It backs the
// "memory" database driver and loses everything on restart.
type MemoryLogRepository struct {
	mu      sync.RWMutex
	entries []domain.DeploymentLog
	nextID  uint
	logger  *logger.Logger
}

func NewMemoryLogRepository(log *logger.Logger) ports.DeploymentLogRepository {
	return &MemoryLogRepository{logger: log}
}

func (r *MemoryLogRepository) Append(ctx context.Context, entry *domain.DeploymentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].JobID == entry.JobID {
			return ErrDuplicateLog
		}
	}
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, *entry)
	r.logger.Infow("deployment_log_memory_append", "job_id", entry.JobID, "status", entry.Status)
	return nil
}

func (r *MemoryLogRepository) GetByJobID(ctx context.Context, jobID string) (*domain.DeploymentLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].JobID == jobID {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, ErrLogNotFound
}

func (r *MemoryLogRepository) ListAll(ctx context.Context, limit int) ([]domain.DeploymentLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.DeploymentLog, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *MemoryLogRepository) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	kept := r.entries[:0]
	var removed int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}
