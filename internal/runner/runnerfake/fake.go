// Package runnerfake provides a scripted runner.Runner implementation for
// tests. It replays configured output lines and a final result without
// spawning real processes.
package runnerfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/runner"
)

// RunnerConfig is the configuration for the fake runner.
type RunnerConfig struct {
	// Lines are replayed in order on every started handle.
	Lines []runner.Line
	// Result is the terminal result sent after the lines.
	Result runner.Result
	// Block keeps the process alive after replaying the lines until Kill
	// is called (simulates a command that never exits).
	Block bool
	// StartErr, when set, makes Start fail without creating a handle.
	StartErr error
	Logger   log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runnerfake.Runner"})
	return nil
}

// Runner is a fake implementation of runner.Runner.
type Runner struct {
	cfg     RunnerConfig
	mu      sync.Mutex
	starts  int
	specs   []runner.Spec
	handles []*Handle
	logger  log.Logger
}

// NewRunner creates a new fake runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{cfg: cfg, logger: cfg.Logger}, nil
}

// Start replays the scripted lines and result on a new handle.
func (r *Runner) Start(ctx context.Context, spec runner.Spec) (runner.Handle, error) {
	r.mu.Lock()
	r.starts++
	r.specs = append(r.specs, spec)
	r.mu.Unlock()

	if r.cfg.StartErr != nil {
		return nil, r.cfg.StartErr
	}

	h := &Handle{
		lines:  make(chan runner.Line, len(r.cfg.Lines)+1),
		done:   make(chan runner.Result, 1),
		killed: make(chan struct{}),
	}

	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.mu.Unlock()

	r.logger.Debugf("Started fake process for %q", spec.CLIPath)

	go func() {
		for _, line := range r.cfg.Lines {
			select {
			case <-h.killed:
				close(h.lines)
				h.done <- runner.Result{ExitCode: -1}
				return
			case h.lines <- line:
			}
		}

		if r.cfg.Block {
			<-h.killed
			close(h.lines)
			h.done <- runner.Result{ExitCode: -1}
			return
		}

		close(h.lines)
		h.done <- r.cfg.Result
	}()

	return h, nil
}

// Starts returns how many processes were started.
func (r *Runner) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

// Specs returns the specs of every started process, in order.
func (r *Runner) Specs() []runner.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runner.Spec{}, r.specs...)
}

// Handles returns every created handle, in order.
func (r *Runner) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Handle{}, r.handles...)
}

// Handle is a scripted fake process handle.
type Handle struct {
	lines    chan runner.Line
	done     chan runner.Result
	killOnce sync.Once
	killed   chan struct{}
	kills    int
	mu       sync.Mutex
}

func (h *Handle) Lines() <-chan runner.Line  { return h.lines }
func (h *Handle) Done() <-chan runner.Result { return h.done }

// Kill records the call and unblocks a blocking fake process. Idempotent.
func (h *Handle) Kill() {
	h.mu.Lock()
	h.kills++
	h.mu.Unlock()

	h.killOnce.Do(func() { close(h.killed) })
}

// Kills returns how many times Kill was called.
func (h *Handle) Kills() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kills
}
