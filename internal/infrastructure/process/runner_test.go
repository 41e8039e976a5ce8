package process_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/composedeck/backend/internal/infrastructure/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, argv ...string) ([]string, int, error) {
	t.Helper()

	h, err := process.NewRunner().Start(context.Background(), argv)
	require.NoError(t, err)

	var lines []string
	for line := range h.Lines() {
		lines = append(lines, line)
	}
	code, err := h.Wait()
	return lines, code, err
}

func TestRunner_StreamsLinesInOrder(t *testing.T) {
	lines, code, err := collect(t, "sh", "-c", "echo a; echo b 1>&2; echo c")

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestRunner_NonZeroExitIsNotAnError(t *testing.T) {
	lines, code, err := collect(t, "sh", "-c", "echo boom; exit 3")

	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, []string{"boom"}, lines)
}

func TestRunner_LinesArriveBeforeExit(t *testing.T) {
	h, err := process.NewRunner().Start(context.Background(), []string{"sh", "-c", "echo first; sleep 1; echo second"})
	require.NoError(t, err)

	start := time.Now()
	first := <-h.Lines()

	assert.Equal(t, "first", first)
	assert.Less(t, time.Since(start), 900*time.Millisecond)

	for range h.Lines() {
	}
	code, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestRunner_LaunchFailed(t *testing.T) {
	tests := []struct {
		name string
		argv []string
	}{
		{name: "Missing Executable", argv: []string{"definitely-not-a-real-binary-xyz"}},
		{name: "Empty Command", argv: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := process.NewRunner().Start(context.Background(), tt.argv)

			assert.ErrorIs(t, err, process.ErrLaunchFailed)
		})
	}
}

func TestRunner_ContextCancelReapsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	out, code, _ := process.Run(ctx, process.NewRunner(), []string{"sh", "-c", "echo up; sleep 10"})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NotEqual(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "up\n"))
}

func TestRun_CollectsOutput(t *testing.T) {
	out, code, err := process.Run(context.Background(), process.NewRunner(), []string{"sh", "-c", "printf 'x\\ny\\n'"})

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "x\ny\n", out)
}
