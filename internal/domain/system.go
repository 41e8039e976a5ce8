package domain

import "time"

type ComposeVersion struct {
	Form    CommandForm `json:"version"`
	Details string      `json:"details,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type MirrorStatus struct {
	URL          string  `json:"url"`
	Available    bool    `json:"available"`
	StatusCode   int     `json:"status_code,omitempty"`
	ResponseTime float64 `json:"response_time_ms,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type HostStats struct {
	Hostname string  `json:"hostname"`
	OS       string  `json:"os"`
	Platform string  `json:"platform"`
	Uptime   uint64  `json:"uptime"`
	CPUUsage float64 `json:"cpu_usage"`
	RAMUsage float64 `json:"ram_usage"`
	RAMTotal uint64  `json:"ram_total"`
	RAMUsed  uint64  `json:"ram_used"`
}

type SystemInfo struct {
	ComposeVersion ComposeVersion `json:"docker_compose_version"`
	Mirrors        []MirrorStatus `json:"mirrors_status"`
	Host           *HostStats     `json:"host,omitempty"`
	AppVersion     string         `json:"app_version"`
	CurrentTime    time.Time      `json:"current_time"`
}

type DockerStats struct {
	ContainersCount        int `json:"containers_count"`
	RunningContainersCount int `json:"running_containers_count"`
	ImagesCount            int `json:"images_count"`
}
