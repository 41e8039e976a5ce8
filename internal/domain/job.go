package domain

import (
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s. Staying in the
// same non-terminal state is allowed so that running jobs can be updated.
// A job only reaches a terminal state from running.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusPending || next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusRunning || next.IsTerminal()
	}
	return false
}

// CommandForm identifies which compose invocation is available on the host.
type CommandForm string

const (
	// CommandFormPlugin is the "docker compose" subcommand (Compose v2).
	CommandFormPlugin CommandForm = "v2"
	// CommandFormStandalone is the legacy "docker-compose" binary.
	CommandFormStandalone CommandForm = "v1"
)

// Args returns the argv prefix for the form.
func (f CommandForm) Args() []string {
	if f == CommandFormStandalone {
		return []string{"docker-compose"}
	}
	return []string{"docker", "compose"}
}

// Job is one tracked execution of a compose deployment.
type Job struct {
	ID          string      `json:"id"`
	FilePath    string      `json:"file_path"`
	Form        CommandForm `json:"command_form"`
	Command     string      `json:"command"`
	Status      JobStatus   `json:"status"`
	Progress    int         `json:"progress"`
	Output      []string    `json:"-"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand to readers.
func (j *Job) Clone() *Job {
	c := *j
	if j.Output != nil {
		c.Output = make([]string, len(j.Output))
		copy(c.Output, j.Output)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// WorkingCopy copies the record for in-place mutation. Output shares its
// backing array with j, so lines appended to the copy do not cost a copy of
// the lines already captured.
func (j *Job) WorkingCopy() *Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// OutputText joins the captured lines, each terminated by a newline.
func (j *Job) OutputText() string {
	if len(j.Output) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range j.Output {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
