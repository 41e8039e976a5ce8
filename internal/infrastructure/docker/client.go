package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// engineAPI is the subset of the SDK client the runtime uses.
type engineAPI interface {
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	Info(ctx context.Context) (system.Info, error)
	Ping(ctx context.Context) (types.Ping, error)
	Close() error
}

// Runtime talks to the local docker engine.
type Runtime struct {
	api         engineAPI
	stopTimeout int
}

var _ ports.ContainerRuntime = (*Runtime)(nil)

// New creates a runtime using environment defaults. host overrides
// DOCKER_HOST when set.
func New(host string) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	inner, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return newRuntime(inner), nil
}

func newRuntime(api engineAPI) *Runtime {
	return &Runtime{api: api, stopTimeout: 10}
}

// Ping validates connectivity to the docker daemon.
func (r *Runtime) Ping(ctx context.Context) error {
	ping, err := r.api.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	if ping.APIVersion == "" {
		return fmt.Errorf("docker ping returned empty API version")
	}
	return nil
}

func (r *Runtime) StopContainer(ctx context.Context, id string) error {
	timeout := r.stopTimeout
	if err := r.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("docker stop %s: %w", id, err)
	}
	return nil
}

func (r *Runtime) StartContainer(ctx context.Context, id string) error {
	if err := r.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("docker start %s: %w", id, err)
	}
	return nil
}

// ContainerLogs returns the last tail lines of stdout and stderr.
func (r *Runtime) ContainerLogs(ctx context.Context, id string, tail int) (string, error) {
	inspect, err := r.api.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("docker inspect %s: %w", id, err)
	}

	reader, err := r.api.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return "", fmt.Errorf("docker logs %s: %w", id, err)
	}
	defer reader.Close()

	var out bytes.Buffer
	// Without a TTY the stream is multiplexed.
	if inspect.Config != nil && inspect.Config.Tty {
		_, err = io.Copy(&out, reader)
	} else {
		_, err = stdcopy.StdCopy(&out, &out, reader)
	}
	if err != nil {
		return "", fmt.Errorf("docker logs %s: read: %w", id, err)
	}
	return out.String(), nil
}

func (r *Runtime) Stats(ctx context.Context) (domain.DockerStats, error) {
	info, err := r.api.Info(ctx)
	if err != nil {
		return domain.DockerStats{}, fmt.Errorf("docker info: %w", err)
	}
	return domain.DockerStats{
		ContainersCount:        info.Containers,
		RunningContainersCount: info.ContainersRunning,
		ImagesCount:            info.Images,
	}, nil
}

// Close releases resources held by the docker client.
func (r *Runtime) Close() error {
	if r.api == nil {
		return nil
	}
	return r.api.Close()
}
