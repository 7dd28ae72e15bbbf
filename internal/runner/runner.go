// Package runner owns the wrapped CLI process lifecycle: spawn, stream
// capture, wall-clock timeout and termination.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
)

// DefaultTimeout is the default wall-clock budget for one execution.
const DefaultTimeout = 1 * time.Hour

// Stream identifies which process stream an output line was read from.
type Stream string

const (
	// StreamStdout is the process standard output.
	StreamStdout Stream = "stdout"
	// StreamStderr is the process standard error.
	StreamStderr Stream = "stderr"
)

// Line is one line of process output.
type Line struct {
	Stream Stream
	Text   string
}

// Result is the terminal outcome of a process.
type Result struct {
	// ExitCode is the process exit code, 0 on success.
	ExitCode int
	// Err is set on OS-level runtime failures, not on nonzero exits.
	Err error
	// TimedOut reports that the process was terminated by the wall-clock
	// timeout.
	TimedOut bool
}

// Handle is the live handle of one spawned process. Lines is closed once
// both streams are drained, then exactly one Result is sent on Done.
type Handle interface {
	Lines() <-chan Line
	Done() <-chan Result
	// Kill sends a graceful termination signal to the process. It is
	// idempotent and a no-op after the process has exited.
	Kill()
}

// Runner knows how to start wrapped CLI processes.
type Runner interface {
	Start(ctx context.Context, spec Spec) (Handle, error)
}

// Spec describes one process to spawn.
type Spec struct {
	// CLIPath is the path to the wrapped CLI executable.
	CLIPath string
	// Runtime optionally names an interpreter to run the CLI with
	// (e.g. "node"), prefixed before CLIPath.
	Runtime string
	// Args is the flat argument vector, passed directly to process
	// creation, never through a shell.
	Args []string
	// Dir is the working directory for the process.
	Dir string
	// Timeout is the wall-clock budget. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// ExecRunnerConfig is the configuration for the exec runner.
type ExecRunnerConfig struct {
	Logger log.Logger
}

func (c *ExecRunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.ExecRunner"})
	return nil
}

// ExecRunner spawns wrapped CLI processes with os/exec, stdio fully piped.
type ExecRunner struct {
	logger log.Logger
}

// NewExecRunner creates a new exec runner.
func NewExecRunner(cfg ExecRunnerConfig) (*ExecRunner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ExecRunner{logger: cfg.Logger}, nil
}

// Start spawns the process described by spec. It fails fast when the
// wrapped CLI executable is missing instead of letting process creation
// fail opaquely.
func (r *ExecRunner) Start(ctx context.Context, spec Spec) (Handle, error) {
	if spec.CLIPath == "" {
		return nil, fmt.Errorf("CLI path is required: %w", model.ErrNotValid)
	}
	if _, err := os.Stat(spec.CLIPath); err != nil {
		return nil, fmt.Errorf("CLI executable %q not found, build or install it first: %w", spec.CLIPath, model.ErrCLINotFound)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	name := spec.CLIPath
	args := spec.Args
	if spec.Runtime != "" {
		name = spec.Runtime
		args = append([]string{spec.CLIPath}, spec.Args...)
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = spec.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("could not pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("could not pipe stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not spawn process: %w", err)
	}

	r.logger.Debugf("Spawned process %d: %s %v", cmd.Process.Pid, name, args)

	h := &execHandle{
		cmd:   cmd,
		lines: make(chan Line, 64),
		done:  make(chan Result, 1),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go h.scan(&wg, StreamStdout, stdout)
	go h.scan(&wg, StreamStderr, stderr)

	timer := time.AfterFunc(timeout, func() {
		h.timedOut.Store(true)
		h.Kill()
	})

	// Caller-initiated cancellation terminates the process, otherwise the
	// watcher exits with the process itself.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			h.Kill()
		case <-watchDone:
		}
	}()

	go func() {
		wg.Wait()
		close(h.lines)

		err := cmd.Wait()
		timer.Stop()
		close(watchDone)

		res := Result{TimedOut: h.timedOut.Load()}
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			res.ExitCode = -1
			res.Err = err
		}

		h.done <- res
	}()

	return h, nil
}

type execHandle struct {
	cmd      *exec.Cmd
	lines    chan Line
	done     chan Result
	killOnce sync.Once
	timedOut atomic.Bool
}

func (h *execHandle) Lines() <-chan Line  { return h.lines }
func (h *execHandle) Done() <-chan Result { return h.done }

// Kill sends SIGTERM to the process. Signalling an already exited process
// returns an error which is deliberately ignored, making Kill idempotent.
func (h *execHandle) Kill() {
	h.killOnce.Do(func() {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	})
}

func (h *execHandle) scan(wg *sync.WaitGroup, stream Stream, r io.Reader) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		h.lines <- Line{Stream: stream, Text: scanner.Text()}
	}
}
