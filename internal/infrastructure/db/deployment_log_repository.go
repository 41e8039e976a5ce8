package db

import (
	"context"
	"errors"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

var (
	// ErrLogNotFound is returned when no audit entry exists for a job.
	ErrLogNotFound  = errors.New("deployment log not found")
	ErrDuplicateLog = errors.New("deployment log already exists")
)

type deploymentLogRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeploymentLogRepository(db *gorm.DB, log *logger.Logger) ports.DeploymentLogRepository {
	return &deploymentLogRepository{
		db:  db,
		log: log,
	}
}

func (r *deploymentLogRepository) Append(ctx context.Context, entry *domain.DeploymentLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Errorw("deployment_log_repo_append_failed", "job_id", entry.JobID, "status", entry.Status, "error", err)
		return err
	}
	r.log.Infow("deployment_log_repo_append_ok", "id", entry.ID, "job_id", entry.JobID, "status", entry.Status)
	return nil
}

func (r *deploymentLogRepository) GetByJobID(ctx context.Context, jobID string) (*domain.DeploymentLog, error) {
	var entry domain.DeploymentLog
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		r.log.Errorw("deployment_log_repo_get_failed", "job_id", jobID, "error", err)
		return nil, err
	}
	return &entry, nil
}

func (r *deploymentLogRepository) ListAll(ctx context.Context, limit int) ([]domain.DeploymentLog, error) {
	entries := []domain.DeploymentLog{}
	q := r.db.WithContext(ctx).Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		r.log.Errorw("deployment_log_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Debugw("deployment_log_repo_list_ok", "count", len(entries))
	return entries, nil
}

// CleanupOld removes entries created more than olderThan ago.
func (r *deploymentLogRepository) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.DeploymentLog{})
	if res.Error != nil {
		r.log.Errorw("deployment_log_repo_cleanup_failed", "error", res.Error)
		return 0, res.Error
	}
	r.log.Infow("deployment_log_repo_cleanup_ok", "removed", res.RowsAffected)
	return res.RowsAffected, nil
}
