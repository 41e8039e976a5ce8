package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/composedeck/backend/internal/core/ports"
)

var (
	ErrLaunchFailed = errors.New("process: launch failed")
	ErrStreamError  = errors.New("process: output stream error")
)

const maxLineSize = 1024 * 1024

type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Start(ctx context.Context, argv []string) (ports.CommandHandle, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("%w: empty command", ErrLaunchFailed)
	}

	// stdout and stderr share one pipe so lines keep their relative order.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrLaunchFailed, argv[0], err)
	}
	// The child holds its own copy of the write end.
	pw.Close()

	h := &handle{
		cmd:   cmd,
		pipe:  pr,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	go h.closeOnCancel(ctx)
	go h.drain()
	return h, nil
}

type handle struct {
	cmd   *exec.Cmd
	pipe  *os.File
	lines chan string
	done  chan struct{}

	closeOnce sync.Once
	exitCode  int
	readErr   error
	waitErr   error
}

func (h *handle) Lines() <-chan string {
	return h.lines
}

func (h *handle) Wait() (int, error) {
	<-h.done
	if h.readErr != nil {
		return h.exitCode, fmt.Errorf("%w: %v", ErrStreamError, h.readErr)
	}
	return h.exitCode, h.waitErr
}

func (h *handle) closePipe() {
	h.closeOnce.Do(func() { h.pipe.Close() })
}

// closeOnCancel unblocks the reader when the context ends, in case a
// descendant of the killed process still holds the pipe open.
func (h *handle) closeOnCancel(ctx context.Context) {
	select {
	case <-ctx.Done():
		h.closePipe()
	case <-h.done:
	}
}

func (h *handle) drain() {
	scanner := bufio.NewScanner(h.pipe)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		h.lines <- strings.TrimRight(scanner.Text(), "\r")
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		h.readErr = err
		// Keep the child from blocking on a full pipe so it can be reaped.
		_, _ = io.Copy(io.Discard, h.pipe)
	}
	close(h.lines)
	h.closePipe()

	err := h.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		h.exitCode = 0
	case errors.As(err, &exitErr):
		h.exitCode = exitErr.ExitCode()
	default:
		h.exitCode = -1
		h.waitErr = fmt.Errorf("process: wait: %w", err)
	}
	close(h.done)
}

// Run starts argv and collects its whole output. It is meant for short
// commands; use the handle directly to observe output as it arrives.
func Run(ctx context.Context, runner ports.CommandRunner, argv []string) (string, int, error) {
	h, err := runner.Start(ctx, argv)
	if err != nil {
		return "", -1, err
	}
	var b strings.Builder
	for line := range h.Lines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	code, err := h.Wait()
	return b.String(), code, err
}
