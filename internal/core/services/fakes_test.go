package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
)

// fakeScript describes what one fake process does.
type fakeScript struct {
	lines    []string
	exitCode int
	waitErr  error
	startErr error
	// gate, when set, holds the process before it emits anything.
	gate chan struct{}
}

type fakeRunner struct {
	mu      sync.Mutex
	scripts map[string]fakeScript
	calls   [][]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{scripts: make(map[string]fakeScript)}
}

// on registers the script for argv whose joined form contains key.
func (r *fakeRunner) on(key string, s fakeScript) *fakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[key] = s
	return r
}

func (r *fakeRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *fakeRunner) Start(ctx context.Context, argv []string) (ports.CommandHandle, error) {
	r.mu.Lock()
	r.calls = append(r.calls, argv)
	script, ok := r.lookup(strings.Join(argv, " "))
	r.mu.Unlock()

	if !ok {
		return nil, errors.New("process: launch failed: not found")
	}
	if script.startErr != nil {
		return nil, script.startErr
	}

	h := &fakeHandle{lines: make(chan string), done: make(chan struct{}), script: script}
	go h.run(ctx)
	return h, nil
}

func (r *fakeRunner) lookup(joined string) (fakeScript, bool) {
	keys := make([]string, 0, len(r.scripts))
	for k := range r.scripts {
		keys = append(keys, k)
	}
	// Longest key wins so "docker compose version" beats "docker compose".
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.Contains(joined, k) {
			return r.scripts[k], true
		}
	}
	return fakeScript{}, false
}

type fakeHandle struct {
	lines    chan string
	done     chan struct{}
	script   fakeScript
	canceled bool
}

func (h *fakeHandle) run(ctx context.Context) {
	if h.script.gate != nil {
		select {
		case <-h.script.gate:
		case <-ctx.Done():
			h.canceled = true
			close(h.lines)
			close(h.done)
			return
		}
	}
	for _, l := range h.script.lines {
		h.lines <- l
	}
	close(h.lines)
	close(h.done)
}

func (h *fakeHandle) Lines() <-chan string { return h.lines }

func (h *fakeHandle) Wait() (int, error) {
	<-h.done
	if h.canceled {
		return -1, nil
	}
	return h.script.exitCode, h.script.waitErr
}

type fakeManifests struct {
	existing map[string]bool
}

func newFakeManifests(paths ...string) *fakeManifests {
	m := &fakeManifests{existing: make(map[string]bool)}
	for _, p := range paths {
		m.existing[p] = true
	}
	return m
}

func (m *fakeManifests) Exists(path string) bool             { return m.existing[path] }
func (m *fakeManifests) Normalize(path string) (string, bool) { return path, true }
func (m *fakeManifests) List() ([]domain.Manifest, error)     { return nil, nil }
func (m *fakeManifests) Read(path string) ([]byte, error)     { return nil, nil }
func (m *fakeManifests) Write(path string, b []byte) error    { return nil }
func (m *fakeManifests) Delete(path string) error             { return nil }
func (m *fakeManifests) SystemDir(system string) string       { return system }

type memoryAuditLog struct {
	mu      sync.Mutex
	entries []domain.DeploymentLog
}

func (l *memoryAuditLog) Append(ctx context.Context, entry *domain.DeploymentLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.ID = uint(len(l.entries) + 1)
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *memoryAuditLog) GetByJobID(ctx context.Context, jobID string) (*domain.DeploymentLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].JobID == jobID {
			e := l.entries[i]
			return &e, nil
		}
	}
	return nil, errors.New("not found")
}

func (l *memoryAuditLog) ListAll(ctx context.Context, limit int) ([]domain.DeploymentLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.DeploymentLog, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

func (l *memoryAuditLog) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	kept := l.entries[:0]
	var removed int64
	for _, e := range l.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed, nil
}

func (l *memoryAuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type recordingMetrics struct {
	mu        sync.Mutex
	submitted int
	finished  map[domain.JobStatus]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{finished: make(map[domain.JobStatus]int)}
}

func (m *recordingMetrics) JobSubmitted(domain.CommandForm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted++
}

func (m *recordingMetrics) JobFinished(status domain.JobStatus, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[status]++
}
