package ports

import (
	"context"
	"time"

	"github.com/composedeck/backend/internal/domain"
)

type DeploymentService interface {
	Submit(ctx context.Context, manifestPath string) (*domain.Job, error)
	Stop(ctx context.Context, manifestPath string) (string, error)
	ActiveJobs() []*domain.Job
	History(ctx context.Context, limit int) ([]domain.DeploymentLog, error)
}

type StatusService interface {
	GetStatus(ctx context.Context, jobID string) (*JobStatusView, error)
}

// JobStatusView is the polling projection of a job.
type JobStatusView struct {
	JobID       string           `json:"job_id"`
	Status      domain.JobStatus `json:"status"`
	Progress    int              `json:"progress"`
	Output      string           `json:"output"`
	Completed   bool             `json:"completed"`
	Error       string           `json:"error,omitempty"`
	Command     string           `json:"command"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type ComposeProbe interface {
	Probe(ctx context.Context) (domain.ComposeVersion, error)
}

type ManifestService interface {
	List(ctx context.Context) ([]domain.Manifest, error)
	Read(ctx context.Context, path string) (*domain.ManifestContent, error)
	Save(ctx context.Context, path, content string) error
	Delete(ctx context.Context, path string) error
	SystemTypes() []domain.SystemType
}

// ContainerRuntime is the pass-through to the local container engine.
type ContainerRuntime interface {
	StopContainer(ctx context.Context, id string) error
	StartContainer(ctx context.Context, id string) error
	ContainerLogs(ctx context.Context, id string, tail int) (string, error)
	Stats(ctx context.Context) (domain.DockerStats, error)
}

type SystemService interface {
	Info(ctx context.Context) (*domain.SystemInfo, error)
	DockerStats(ctx context.Context) (domain.DockerStats, error)
}

// DeploymentMetrics records job lifecycle events.
type DeploymentMetrics interface {
	JobSubmitted(form domain.CommandForm)
	JobFinished(status domain.JobStatus, duration time.Duration)
}

type HostStatsCollector interface {
	Collect(ctx context.Context) (*domain.HostStats, error)
}

type ContainerService interface {
	Stop(ctx context.Context, id string) error
	Start(ctx context.Context, id string) error
	Logs(ctx context.Context, id string, tail int) (string, error)
}
