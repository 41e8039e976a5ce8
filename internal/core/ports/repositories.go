package ports

import (
	"context"
	"time"

	"github.com/composedeck/backend/internal/domain"
)

// DeploymentLogRepository is the durable audit log. Entries are appended once
// per job, at its terminal transition.
type DeploymentLogRepository interface {
	Append(ctx context.Context, entry *domain.DeploymentLog) error
	GetByJobID(ctx context.Context, jobID string) (*domain.DeploymentLog, error)
	// ListAll returns entries newest first. A limit <= 0 returns everything.
	ListAll(ctx context.Context, limit int) ([]domain.DeploymentLog, error)
	CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ManifestRepository is the local directory tree of compose files.
type ManifestRepository interface {
	Exists(path string) bool
	// Normalize resolves path and reports false when it escapes the root.
	Normalize(path string) (string, bool)
	List() ([]domain.Manifest, error)
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
	Delete(path string) error
	SystemDir(system string) string
}
