package services

import "errors"

// Deployment errors
var (
	ErrManifestNotFound = errors.New("deploy: manifest not found")
	ErrToolUnavailable  = errors.New("deploy: docker compose is not available")
	ErrStopFailed       = errors.New("deploy: compose down failed")
)

// Job store errors
var (
	ErrJobNotFound        = errors.New("job: not found")
	ErrDuplicateJob       = errors.New("job: already exists")
	ErrIllegalTransition  = errors.New("job: illegal status transition")
	ErrProgressOutOfRange = errors.New("job: progress out of range")
	ErrProgressRegressed  = errors.New("job: progress must not decrease while running")
	ErrOutputTruncated    = errors.New("job: output is append-only")
)

// Manifest errors
var (
	ErrManifestOutsideRoot = errors.New("manifest: path outside data directory")
	ErrInvalidManifest     = errors.New("manifest: invalid YAML")
	ErrManifestInvalidName = errors.New("manifest: file must have a .yml or .yaml extension")
)

// Container errors
var (
	ErrContainerRuntime   = errors.New("container: runtime unavailable")
	ErrContainerInvalidID = errors.New("container: invalid id")
)
