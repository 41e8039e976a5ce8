package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/infrastructure/process"
	"github.com/google/uuid"
)

type DeploymentEngineConfig struct {
	Store     *JobStore
	Probe     ports.ComposeProbe
	Runner    ports.CommandRunner
	Manifests ports.ManifestRepository
	AuditLog  ports.DeploymentLogRepository
	Metrics   ports.DeploymentMetrics
	Logger    *logger.Logger

	InitialProgress int
	ProgressStep    int
	ProgressCeiling int
	StopTimeout     time.Duration
}

// DeploymentEngine drives compose deployments from submission to a terminal
// state. Each accepted job runs on its own goroutine.
type DeploymentEngine struct {
	store     *JobStore
	probe     ports.ComposeProbe
	runner    ports.CommandRunner
	manifests ports.ManifestRepository
	auditLog  ports.DeploymentLogRepository
	metrics   ports.DeploymentMetrics
	logger    *logger.Logger

	initialProgress int
	progressStep    int
	progressCeiling int
	stopTimeout     time.Duration

	now func() time.Time
	wg  sync.WaitGroup
}

func NewDeploymentEngine(cfg DeploymentEngineConfig) *DeploymentEngine {
	e := &DeploymentEngine{
		store:           cfg.Store,
		probe:           cfg.Probe,
		runner:          cfg.Runner,
		manifests:       cfg.Manifests,
		auditLog:        cfg.AuditLog,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		initialProgress: cfg.InitialProgress,
		progressStep:    cfg.ProgressStep,
		progressCeiling: cfg.ProgressCeiling,
		stopTimeout:     cfg.StopTimeout,
		now:             time.Now,
	}
	if e.progressCeiling <= 0 || e.progressCeiling >= 100 {
		e.progressCeiling = 90
	}
	if e.initialProgress > e.progressCeiling {
		e.initialProgress = e.progressCeiling
	}
	if e.stopTimeout <= 0 {
		e.stopTimeout = 2 * time.Minute
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.logger == nil {
		e.logger = logger.NewNop()
	}
	return e
}

// Submit validates the manifest and tool, records a pending job and starts it
// in the background. The job is visible in the store before Submit returns.
func (e *DeploymentEngine) Submit(ctx context.Context, manifestPath string) (*domain.Job, error) {
	manifestPath, err := e.resolveManifest(manifestPath)
	if err != nil {
		e.logger.Warnw("deployment_submit_manifest_missing", "file_path", manifestPath)
		return nil, err
	}

	version, err := e.probe.Probe(ctx)
	if err != nil {
		e.logger.Errorw("deployment_submit_tool_unavailable", "file_path", manifestPath, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrToolUnavailable, version.Error)
	}

	argv := composeArgs(version.Form, manifestPath, "up", "-d")
	job := &domain.Job{
		ID:        uuid.New().String(),
		FilePath:  manifestPath,
		Form:      version.Form,
		Command:   strings.Join(argv, " "),
		Status:    domain.JobStatusPending,
		CreatedAt: e.now(),
	}
	if err := e.store.Create(job); err != nil {
		return nil, err
	}

	e.metrics.JobSubmitted(version.Form)
	e.logger.Infow("deployment_submit_ok", "job_id", job.ID, "file_path", manifestPath, "command", job.Command)

	e.wg.Add(1)
	go e.execute(job.ID, argv)

	return job.Clone(), nil
}

// resolveManifest returns the absolute manifest path the command will use.
func (e *DeploymentEngine) resolveManifest(manifestPath string) (string, error) {
	manifestPath = strings.TrimSpace(manifestPath)
	resolved, ok := e.manifests.Normalize(manifestPath)
	if manifestPath == "" || !ok || !e.manifests.Exists(resolved) {
		return manifestPath, fmt.Errorf("%w: %s", ErrManifestNotFound, manifestPath)
	}
	return resolved, nil
}

func (e *DeploymentEngine) execute(jobID string, argv []string) {
	defer e.wg.Done()
	defer e.finalize(jobID)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorw("deployment_panic", "job_id", jobID, "panic", r)
			e.fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	e.update(jobID, func(j *domain.Job) error {
		j.Status = domain.JobStatusRunning
		j.Progress = e.initialProgress
		return nil
	})

	// Deployments are not cancellable: the process outlives the request.
	handle, err := e.runner.Start(context.Background(), argv)
	if err != nil {
		e.logger.Errorw("deployment_launch_failed", "job_id", jobID, "error", err)
		e.fail(jobID, err.Error())
		return
	}

	for line := range handle.Lines() {
		e.update(jobID, func(j *domain.Job) error {
			j.Output = append(j.Output, line)
			j.Progress = min(e.progressCeiling, j.Progress+e.progressStep)
			return nil
		})
	}

	code, err := handle.Wait()
	switch {
	case err != nil:
		e.logger.Errorw("deployment_stream_failed", "job_id", jobID, "exit_code", code, "error", err)
		e.fail(jobID, err.Error())
	case code != 0:
		e.logger.Warnw("deployment_exit_nonzero", "job_id", jobID, "exit_code", code)
		e.fail(jobID, fmt.Sprintf("deployment failed with exit code %d", code))
	default:
		e.update(jobID, func(j *domain.Job) error {
			j.Status = domain.JobStatusSucceeded
			j.Progress = 100
			return nil
		})
	}
}

func (e *DeploymentEngine) fail(jobID, msg string) {
	e.update(jobID, func(j *domain.Job) error {
		if j.Status == domain.JobStatusPending {
			j.Status = domain.JobStatusRunning
		}
		return nil
	})
	e.update(jobID, func(j *domain.Job) error {
		if j.Status.IsTerminal() {
			return nil
		}
		j.Status = domain.JobStatusFailed
		j.Progress = 0
		j.Error = msg
		return nil
	})
}

func (e *DeploymentEngine) update(jobID string, fn func(j *domain.Job) error) {
	if err := e.store.Update(jobID, fn); err != nil {
		e.logger.Warnw("deployment_job_update_failed", "job_id", jobID, "error", err)
	}
}

// finalize writes the terminal state to the audit log and metrics.
func (e *DeploymentEngine) finalize(jobID string) {
	job, err := e.store.Get(jobID)
	if err != nil {
		e.logger.Warnw("deployment_finalize_job_missing", "job_id", jobID)
		return
	}
	if !job.Status.IsTerminal() {
		e.fail(jobID, "deployment ended without a result")
		if job, err = e.store.Get(jobID); err != nil {
			return
		}
	}

	completedAt := e.now()
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}
	e.metrics.JobFinished(job.Status, completedAt.Sub(job.CreatedAt))
	e.logger.Infow("deployment_finished", "job_id", jobID, "status", job.Status, "lines", len(job.Output), "error", job.Error)

	if e.auditLog == nil {
		return
	}
	entry := &domain.DeploymentLog{
		JobID:       job.ID,
		FilePath:    job.FilePath,
		FileName:    filepath.Base(job.FilePath),
		Status:      job.Status,
		Command:     job.Command,
		Output:      job.OutputText(),
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: &completedAt,
	}
	if err := e.auditLog.Append(context.Background(), entry); err != nil {
		e.logger.Errorw("deployment_audit_append_failed", "job_id", jobID, "error", err)
	}
}

// Stop runs compose down for the manifest and waits for it to finish. It is
// not tracked as a job.
func (e *DeploymentEngine) Stop(ctx context.Context, manifestPath string) (string, error) {
	manifestPath, err := e.resolveManifest(manifestPath)
	if err != nil {
		return "", err
	}

	version, err := e.probe.Probe(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolUnavailable, version.Error)
	}

	ctx, cancel := context.WithTimeout(ctx, e.stopTimeout)
	defer cancel()

	argv := composeArgs(version.Form, manifestPath, "down")
	out, code, err := process.Run(ctx, e.runner, argv)
	if err != nil {
		e.logger.Errorw("deployment_stop_failed", "file_path", manifestPath, "error", err)
		return out, fmt.Errorf("%w: %v", ErrStopFailed, err)
	}
	if code != 0 {
		e.logger.Warnw("deployment_stop_nonzero", "file_path", manifestPath, "exit_code", code)
		return out, fmt.Errorf("%w: exit code %d: %s", ErrStopFailed, code, strings.TrimSpace(out))
	}

	e.logger.Infow("deployment_stop_ok", "file_path", manifestPath)
	return out, nil
}

func (e *DeploymentEngine) ActiveJobs() []*domain.Job {
	return e.store.List()
}

func (e *DeploymentEngine) History(ctx context.Context, limit int) ([]domain.DeploymentLog, error) {
	if e.auditLog == nil {
		return []domain.DeploymentLog{}, nil
	}
	return e.auditLog.ListAll(ctx, limit)
}

// Wait blocks until every background job has finished or ctx ends.
func (e *DeploymentEngine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func composeArgs(form domain.CommandForm, manifestPath string, args ...string) []string {
	argv := append(form.Args(), "-f", manifestPath)
	return append(argv, args...)
}

type nopMetrics struct{}

func (nopMetrics) JobSubmitted(domain.CommandForm) {}
func (nopMetrics) JobFinished(domain.JobStatus, time.Duration) {}
