package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"golang.org/x/sync/errgroup"
)

const mirrorCheckTimeout = 3 * time.Second

type SystemServiceConfig struct {
	Probe      ports.ComposeProbe
	Runtime    ports.ContainerRuntime
	Host       ports.HostStatsCollector
	HTTPClient *http.Client
	Mirrors    []string
	AppVersion string
	Logger     *logger.Logger
}

// SystemInfoService reports on the host and its docker tooling.
type SystemInfoService struct {
	probe      ports.ComposeProbe
	runtime    ports.ContainerRuntime
	host       ports.HostStatsCollector
	client     *http.Client
	mirrors    []string
	appVersion string
	logger     *logger.Logger
	now        func() time.Time
}

func NewSystemInfoService(cfg SystemServiceConfig) *SystemInfoService {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: mirrorCheckTimeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &SystemInfoService{
		probe:      cfg.Probe,
		runtime:    cfg.Runtime,
		host:       cfg.Host,
		client:     client,
		mirrors:    cfg.Mirrors,
		appVersion: cfg.AppVersion,
		logger:     log,
		now:        time.Now,
	}
}

// Info never fails on a missing tool or unreachable mirror: those are part
// of the report.
func (s *SystemInfoService) Info(ctx context.Context) (*domain.SystemInfo, error) {
	info := &domain.SystemInfo{
		AppVersion:  s.appVersion,
		CurrentTime: s.now(),
		Mirrors:     make([]domain.MirrorStatus, len(s.mirrors)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.probe.Probe(gctx)
		if err != nil && v.Error == "" {
			v.Error = err.Error()
		}
		info.ComposeVersion = v
		return nil
	})
	for i, url := range s.mirrors {
		g.Go(func() error {
			info.Mirrors[i] = s.checkMirror(gctx, url)
			return nil
		})
	}
	if s.host != nil {
		g.Go(func() error {
			stats, err := s.host.Collect(gctx)
			if err != nil {
				s.logger.Warnw("system_host_stats_failed", "error", err)
			}
			info.Host = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *SystemInfoService) checkMirror(ctx context.Context, url string) domain.MirrorStatus {
	status := domain.MirrorStatus{URL: url}

	ctx, cancel := context.WithTimeout(ctx, mirrorCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	resp.Body.Close()

	status.StatusCode = resp.StatusCode
	status.Available = resp.StatusCode < http.StatusBadRequest
	status.ResponseTime = float64(time.Since(start).Microseconds()) / 1000
	if !status.Available {
		status.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return status
}

func (s *SystemInfoService) DockerStats(ctx context.Context) (domain.DockerStats, error) {
	stats, err := s.runtime.Stats(ctx)
	if err != nil {
		s.logger.Errorw("system_docker_stats_failed", "error", err)
		return domain.DockerStats{}, fmt.Errorf("%w: %v", ErrContainerRuntime, err)
	}
	return stats, nil
}
