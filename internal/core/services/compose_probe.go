package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/infrastructure/process"
)

// probeOrder lists the forms to try; the plugin form wins when both work.
var probeOrder = []domain.CommandForm{domain.CommandFormPlugin, domain.CommandFormStandalone}

// ComposeProbeService finds the usable compose command form. The first
// successful result is cached for the life of the process; failures are not.
type ComposeProbeService struct {
	runner  ports.CommandRunner
	timeout time.Duration
	logger  *logger.Logger

	mu     sync.Mutex
	cached *domain.ComposeVersion
}

func NewComposeProbeService(runner ports.CommandRunner, timeout time.Duration, log *logger.Logger) *ComposeProbeService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ComposeProbeService{runner: runner, timeout: timeout, logger: log}
}

func (p *ComposeProbeService) Probe(ctx context.Context) (domain.ComposeVersion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	var failures []string
	for _, form := range probeOrder {
		argv := append(form.Args(), "version")
		out, err := p.run(ctx, argv)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", strings.Join(argv, " "), err))
			continue
		}
		v := domain.ComposeVersion{Form: form, Details: strings.TrimSpace(out)}
		p.cached = &v
		p.logger.Infow("compose_probe_ok", "form", form, "details", v.Details)
		return v, nil
	}

	p.logger.Warnw("compose_probe_failed", "attempts", failures)
	return domain.ComposeVersion{Error: strings.Join(failures, "; ")}, ErrToolUnavailable
}

func (p *ComposeProbeService) run(ctx context.Context, argv []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, code, err := process.Run(ctx, p.runner, argv)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if code != 0 {
		return "", fmt.Errorf("exit code %d", code)
	}
	return out, nil
}
