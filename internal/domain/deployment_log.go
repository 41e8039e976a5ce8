package domain

import "time"

// DeploymentLog is the durable audit entry for a deployment job. It outlives
// the in-memory Job and survives restarts.
type DeploymentLog struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	JobID       string     `gorm:"size:36;not null;uniqueIndex" json:"job_id"`
	FilePath    string     `gorm:"size:500;not null" json:"file_path"`
	FileName    string     `gorm:"size:255" json:"file_name"`
	Status      JobStatus  `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Command     string     `gorm:"size:500;not null" json:"command"`
	Output      string     `gorm:"type:text" json:"output"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (DeploymentLog) TableName() string {
	return "deployment_logs"
}
