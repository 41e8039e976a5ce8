package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/infrastructure/logger"
)

const (
	containerOpTimeout = 30 * time.Second
	defaultLogTail     = 100
	maxLogTail         = 5000
)

var containerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ContainerService passes start, stop and log requests through to the
// container runtime. Each call is bounded by a fixed timeout.
type ContainerService struct {
	runtime ports.ContainerRuntime
	logger  *logger.Logger
}

func NewContainerService(runtime ports.ContainerRuntime, log *logger.Logger) *ContainerService {
	return &ContainerService{runtime: runtime, logger: log}
}

func (s *ContainerService) Stop(ctx context.Context, id string) error {
	if err := validateContainerID(id); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, containerOpTimeout)
	defer cancel()

	if err := s.runtime.StopContainer(ctx, id); err != nil {
		s.logger.Errorw("container_stop_failed", "container_id", id, "error", err)
		return fmt.Errorf("%w: %v", ErrContainerRuntime, err)
	}
	s.logger.Infow("container_stop_ok", "container_id", id)
	return nil
}

func (s *ContainerService) Start(ctx context.Context, id string) error {
	if err := validateContainerID(id); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, containerOpTimeout)
	defer cancel()

	if err := s.runtime.StartContainer(ctx, id); err != nil {
		s.logger.Errorw("container_start_failed", "container_id", id, "error", err)
		return fmt.Errorf("%w: %v", ErrContainerRuntime, err)
	}
	s.logger.Infow("container_start_ok", "container_id", id)
	return nil
}

// Logs returns the last tail lines. Non-positive tails use the default.
func (s *ContainerService) Logs(ctx context.Context, id string, tail int) (string, error) {
	if err := validateContainerID(id); err != nil {
		return "", err
	}
	if tail <= 0 {
		tail = defaultLogTail
	}
	tail = min(tail, maxLogTail)

	ctx, cancel := context.WithTimeout(ctx, containerOpTimeout)
	defer cancel()

	logs, err := s.runtime.ContainerLogs(ctx, id, tail)
	if err != nil {
		s.logger.Errorw("container_logs_failed", "container_id", id, "error", err)
		return "", fmt.Errorf("%w: %v", ErrContainerRuntime, err)
	}
	return logs, nil
}

func validateContainerID(id string) error {
	if !containerIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrContainerInvalidID, id)
	}
	return nil
}
