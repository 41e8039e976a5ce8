package dto

import "github.com/composedeck/backend/internal/domain"

type ManifestListResponse struct {
	Total int               `json:"total"`
	Files []domain.Manifest `json:"files"`
}

type SaveManifestRequest struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (r *SaveManifestRequest) Validate() []string {
	var errors []string
	if r.FilePath == "" {
		errors = append(errors, "file_path is required")
	}
	if r.Content == "" {
		errors = append(errors, "content is required")
	}
	return errors
}

type SystemTypesResponse struct {
	SystemTypes []domain.SystemType `json:"system_types"`
}

type ContainerActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ContainerLogsResponse struct {
	ContainerID string `json:"container_id"`
	Logs        string `json:"logs"`
}
