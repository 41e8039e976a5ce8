package domain

import "time"

// SystemLocal groups manifests uploaded by the operator rather than fetched
// for a specific NAS system.
const SystemLocal = "local"

type Manifest struct {
	FileName   string    `json:"filename"`
	FilePath   string    `json:"file_path"`
	SystemName string    `json:"system_name"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mtime"`
}

type ManifestContent struct {
	FilePath   string `json:"file_path"`
	Content    string `json:"content"`
	Parsed     bool   `json:"parsed"`
	ParseError string `json:"parse_error,omitempty"`
}

type SystemType struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}
