package dto

import (
	"strings"
	"time"

	"github.com/composedeck/backend/internal/domain"
)

type DeployRequest struct {
	FilePath string `json:"file_path"`
}

func (r *DeployRequest) Validate() []string {
	var errors []string
	if strings.TrimSpace(r.FilePath) == "" {
		errors = append(errors, "file_path is required")
	}
	return errors
}

type DeployResponse struct {
	JobID       string             `json:"job_id"`
	CommandForm domain.CommandForm `json:"command_form"`
	Command     string             `json:"command"`
	Status      domain.JobStatus   `json:"status"`
	Message     string             `json:"message"`
}

func JobToDeployResponse(job *domain.Job) DeployResponse {
	return DeployResponse{
		JobID:       job.ID,
		CommandForm: job.Form,
		Command:     job.Command,
		Status:      job.Status,
		Message:     "deployment started",
	}
}

type StopResponse struct {
	Message string `json:"message"`
	Output  string `json:"output"`
}

type ActiveJobResponse struct {
	JobID       string           `json:"job_id"`
	FilePath    string           `json:"file_path"`
	Status      domain.JobStatus `json:"status"`
	Progress    int              `json:"progress"`
	Command     string           `json:"command"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func JobsToActiveResponse(jobs []*domain.Job) []ActiveJobResponse {
	out := make([]ActiveJobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = ActiveJobResponse{
			JobID:       job.ID,
			FilePath:    job.FilePath,
			Status:      job.Status,
			Progress:    job.Progress,
			Command:     job.Command,
			Error:       job.Error,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
		}
	}
	return out
}

type DeploymentLogResponse struct {
	ID          uint             `json:"id"`
	JobID       string           `json:"job_id"`
	FileName    string           `json:"file_name"`
	Status      domain.JobStatus `json:"status"`
	Command     string           `json:"command"`
	Output      string           `json:"output"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at"`
}

func LogsToResponse(entries []domain.DeploymentLog) []DeploymentLogResponse {
	out := make([]DeploymentLogResponse, len(entries))
	for i, e := range entries {
		out[i] = DeploymentLogResponse{
			ID:          e.ID,
			JobID:       e.JobID,
			FileName:    e.FileName,
			Status:      e.Status,
			Command:     e.Command,
			Output:      e.Output,
			CreatedAt:   e.CreatedAt,
			CompletedAt: e.CompletedAt,
		}
	}
	return out
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
