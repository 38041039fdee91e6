package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type lineCollector struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCollector) add(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *lineCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestProcessUnitStreamsStdout(t *testing.T) {
	u, err := NewProcessUnit("export", "sh", []string{"-c", "echo one; echo two; echo three"}, "", nil)
	require.NoError(t, err)

	var got lineCollector
	summary, err := u.Run(context.Background(), got.add)
	require.NoError(t, err)
	require.Contains(t, summary, "completed")
	require.Equal(t, []string{"one", "two", "three"}, got.snapshot())
}

func TestProcessUnitNonZeroExit(t *testing.T) {
	u, err := NewProcessUnit("export", "sh", []string{"-c", "echo boom >&2; exit 3"}, "", nil)
	require.NoError(t, err)

	var got lineCollector
	_, err = u.Run(context.Background(), got.add)
	require.Error(t, err)
	require.Contains(t, err.Error(), "code 3")
	require.Contains(t, err.Error(), "boom", "stderr tail should be preserved")
	require.Contains(t, got.snapshot(), "boom", "stderr lines should reach the sink")
}

func TestProcessUnitSpawnFailure(t *testing.T) {
	u, err := NewProcessUnit("export", "definitely-not-a-binary-xyz", nil, "", nil)
	require.NoError(t, err)

	_, err = u.Run(context.Background(), func(string) {})
	require.Error(t, err)
}

func TestProcessUnitCancellation(t *testing.T) {
	u, err := NewProcessUnit("export", "sh", []string{"-c", "echo started; sleep 30"}, "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	onLog := func(line string) {
		if strings.Contains(line, "started") {
			once.Do(func() { close(started) })
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := u.Run(ctx, onLog)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("process never produced output")
	}
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatalf("cancellation did not terminate the process")
	}
}

func TestProcessUnitOversizedLineDoesNotHang(t *testing.T) {
	// 2 MiB on a single line, past the scanner cap, followed by more
	// output; the run must still drain the pipe and reach the exit code
	u, err := NewProcessUnit("export", "sh",
		[]string{"-c", `head -c 2097152 /dev/zero | tr '\0' a; echo; echo after`}, "", nil)
	require.NoError(t, err)

	var got lineCollector
	done := make(chan error, 1)
	go func() {
		_, err := u.Run(context.Background(), got.add)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatalf("oversized output line blocked the run")
	}

	var truncated bool
	for _, line := range got.snapshot() {
		if strings.Contains(line, "stdout truncated") {
			truncated = true
		}
	}
	require.True(t, truncated, "oversized line should be reported to the sink")
}

func TestNewProcessUnitValidation(t *testing.T) {
	_, err := NewProcessUnit("", "sh", nil, "", nil)
	require.Error(t, err)
	_, err = NewProcessUnit("export", "", nil, "", nil)
	require.Error(t, err)
}
