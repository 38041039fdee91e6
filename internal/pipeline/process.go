package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

const stderrTailLines = 20

// ProcessUnit runs an external command and forwards every stdout/stderr
// line to the log sink as it is produced. A non-zero exit or spawn
// failure fails the unit with the exit code and a stderr tail attached.
type ProcessUnit struct {
	name string
	bin  string
	args []string
	dir  string
	env  []string
}

// NewProcessUnit builds a unit for bin+args running in dir. Extra env
// entries ("KEY=VALUE") are appended to the inherited environment.
func NewProcessUnit(name, bin string, args []string, dir string, env []string) (*ProcessUnit, error) {
	name = strings.TrimSpace(name)
	bin = strings.TrimSpace(bin)
	if name == "" {
		return nil, fmt.Errorf("unit name is required")
	}
	if bin == "" {
		return nil, fmt.Errorf("command is required for unit %s", name)
	}
	return &ProcessUnit{name: name, bin: bin, args: args, dir: dir, env: env}, nil
}

func (u *ProcessUnit) Name() string { return u.name }

func (u *ProcessUnit) Run(ctx context.Context, onLog LogFunc) (string, error) {
	cmd := exec.CommandContext(ctx, u.bin, u.args...)
	cmd.Dir = u.dir
	if len(u.env) > 0 {
		cmd.Env = append(cmd.Environ(), u.env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%s: %w", u.bin, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("%s: %w", u.bin, err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("spawn %s: %w", u.bin, err)
	}

	var tail tailBuffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			onLog(scanner.Text())
		}
		// a line over the buffer cap stops the scanner; drain the pipe so
		// the child never blocks on a full stdout
		if err := scanner.Err(); err != nil {
			onLog(fmt.Sprintf("stdout truncated: %v", err))
			_, _ = io.Copy(io.Discard, stdout)
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			onLog(line)
		}
		if err := scanner.Err(); err != nil {
			line := fmt.Sprintf("stderr truncated: %v", err)
			tail.add(line)
			onLog(line)
			_, _ = io.Copy(io.Discard, stderr)
		}
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%s exited with code %d: %s", u.bin, exitErr.ExitCode(), tail.String())
		}
		return "", fmt.Errorf("%s: %w", u.bin, err)
	}
	return fmt.Sprintf("%s completed", u.bin), nil
}

// tailBuffer keeps the last N lines for failure diagnostics.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > stderrTailLines {
		t.lines = t.lines[len(t.lines)-stderrTailLines:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return "(no stderr output)"
	}
	return strings.Join(t.lines, "; ")
}
