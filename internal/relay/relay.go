// Package relay drives one execution request end to end: option
// sanitization, validation, argument building, process lifecycle and the
// event stream relayed back to the caller.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/envrelay/envrelay/internal/command"
	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/progress"
	"github.com/envrelay/envrelay/internal/runner"
	"github.com/envrelay/envrelay/internal/sanitize"
	"github.com/envrelay/envrelay/internal/storage"
)

// DefaultProgressInterval is the minimum spacing between forwarded
// progress events.
const DefaultProgressInterval = 500 * time.Millisecond

// EmitFunc delivers one stream event to the caller. Returning an error
// stops the relay from emitting further events (the process itself keeps
// its own lifecycle).
type EmitFunc func(model.StreamEvent) error

// ServiceConfig is the configuration for the relay service.
type ServiceConfig struct {
	Catalog    *command.Catalog
	Sanitizer  *sanitize.Sanitizer
	Runner     runner.Runner
	Repository storage.Repository

	// CLIPath is the wrapped CLI executable path.
	CLIPath string
	// Runtime optionally names the interpreter the CLI runs with.
	Runtime string
	// ProjectDir is the working directory for spawned processes.
	ProjectDir string
	// Timeout is the wall-clock budget per execution.
	Timeout time.Duration
	// ProgressInterval is the minimum spacing between progress events.
	ProgressInterval time.Duration

	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if c.Sanitizer == nil {
		return fmt.Errorf("sanitizer is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.CLIPath == "" {
		return fmt.Errorf("CLI path is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = runner.DefaultTimeout
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "relay.Service"})
	return nil
}

// Service relays wrapped CLI executions as event streams.
type Service struct {
	catalog    *command.Catalog
	sanitizer  *sanitize.Sanitizer
	runner     runner.Runner
	repo       storage.Repository
	cliPath    string
	runtime    string
	projectDir string
	timeout    time.Duration
	interval   time.Duration
	logger     log.Logger
}

// NewService creates a new relay service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		catalog:    cfg.Catalog,
		sanitizer:  cfg.Sanitizer,
		runner:     cfg.Runner,
		repo:       cfg.Repository,
		cliPath:    cfg.CLIPath,
		runtime:    cfg.Runtime,
		projectDir: cfg.ProjectDir,
		timeout:    cfg.Timeout,
		interval:   cfg.ProgressInterval,
		logger:     cfg.Logger,
	}, nil
}

// Execution is a prepared execution: request checked and translated into
// an argument vector, no process spawned yet.
type Execution struct {
	ID       string
	Command  string
	Args     []string
	ClientID string
}

// Prepare sanitizes and validates the request and builds the argument
// vector. All failures here are synchronous rejections, they never touch
// the event stream.
func (s *Service) Prepare(ctx context.Context, req model.ExecutionRequest, clientID string) (*Execution, error) {
	opts, err := s.sanitizer.Sanitize(req.Command, req.Options)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if err := s.catalog.Validate(req.Command, opts); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	return &Execution{
		ID:       ulid.Make().String(),
		Command:  req.Command,
		Args:     command.BuildArgs(req.Command, opts),
		ClientID: clientID,
	}, nil
}

// Run executes a prepared execution and emits the event stream. A
// Connected event is emitted first, then Output and Progress events as the
// process writes, and exactly one terminal Complete or Error event unless
// the caller cancels through ctx, in which case the process is killed and
// the stream simply ends.
func (s *Service) Run(ctx context.Context, exec *Execution, emit EmitFunc) error {
	record := model.Execution{
		ID:        exec.ID,
		Command:   exec.Command,
		Args:      exec.Args,
		ClientID:  exec.ClientID,
		Status:    model.ExecutionStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateExecution(ctx, record); err != nil {
		return fmt.Errorf("could not record execution: %w", err)
	}

	// Immediate feedback that the request was accepted, before the process
	// necessarily produces any output.
	if err := emit(model.NewConnectedEvent(fmt.Sprintf("Executing %q", exec.Command))); err != nil {
		s.finish(record, model.ExecutionStatusCancelled, 0, "caller went away before start")
		return nil
	}

	h, err := s.runner.Start(ctx, runner.Spec{
		CLIPath: s.cliPath,
		Runtime: s.runtime,
		Args:    exec.Args,
		Dir:     s.projectDir,
		Timeout: s.timeout,
	})
	if err != nil {
		s.logger.Errorf("Could not start process for %s: %s", exec.ID, err)
		msg := fmt.Sprintf("could not start command: %s", err)
		_ = emit(model.NewErrorEvent(msg, solutionFor(msg)))
		s.finish(record, model.ExecutionStatusFailed, -1, msg)
		return nil
	}

	s.logger.Infof("Execution %s started: %s", exec.ID, exec.Command)

	var lastProgress time.Time
	lines := h.Lines()
	for lines != nil {
		select {
		case <-ctx.Done():
			// Caller-initiated cancellation: kill the process, stop
			// relaying and end the stream without a terminal event.
			h.Kill()
			go drain(lines)
			s.logger.Infof("Execution %s cancelled by caller", exec.ID)
			s.finish(record, model.ExecutionStatusCancelled, 0, "")
			return nil

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if line.Text == "" {
				continue
			}

			level := model.OutputLevelInfo
			if line.Stream == runner.StreamStderr {
				level = model.OutputLevelError
			}
			if err := emit(model.NewOutputEvent(level, line.Text)); err != nil {
				h.Kill()
				go drain(lines)
				s.finish(record, model.ExecutionStatusCancelled, 0, "")
				return nil
			}

			// Progress signals supplement raw output, spaced so chatty
			// commands don't flood the channel.
			signal := progress.Classify(line.Text)
			if signal == nil || time.Since(lastProgress) < s.interval {
				continue
			}
			lastProgress = time.Now()
			if err := emit(model.NewProgressEvent(signal.Percent, signal.Stage, signal.Message)); err != nil {
				h.Kill()
				go drain(lines)
				s.finish(record, model.ExecutionStatusCancelled, 0, "")
				return nil
			}
		}
	}

	res := <-h.Done()
	switch {
	case res.Err != nil:
		msg := fmt.Sprintf("command failed: %s", res.Err)
		_ = emit(model.NewErrorEvent(msg, solutionFor(msg)))
		s.finish(record, model.ExecutionStatusFailed, res.ExitCode, msg)

	case res.TimedOut:
		msg := fmt.Sprintf("command timed out after %s: %s", s.timeout, model.ErrTimeout)
		_ = emit(model.NewCompleteEvent(false, msg))
		s.finish(record, model.ExecutionStatusFailed, res.ExitCode, msg)

	case res.ExitCode != 0:
		// A command that ran and failed is a normal, if unhappy, outcome.
		msg := fmt.Sprintf("command exited with code %d", res.ExitCode)
		_ = emit(model.NewCompleteEvent(false, msg))
		s.finish(record, model.ExecutionStatusFailed, res.ExitCode, msg)

	default:
		_ = emit(model.NewCompleteEvent(true, "command completed successfully"))
		s.finish(record, model.ExecutionStatusSucceeded, 0, "")
	}

	s.logger.Infof("Execution %s finished (exit code %d)", exec.ID, res.ExitCode)
	return nil
}

// finish updates the execution record with its terminal state. Repository
// failures are logged, not surfaced, the stream outcome already happened.
func (s *Service) finish(record model.Execution, status model.ExecutionStatus, exitCode int, errMsg string) {
	now := time.Now().UTC()
	record.Status = status
	record.ExitCode = exitCode
	record.Error = errMsg
	record.FinishedAt = &now

	// The request context may already be cancelled, the record still has
	// to be written.
	if err := s.repo.UpdateExecution(context.Background(), record); err != nil {
		s.logger.Errorf("Could not update execution %s: %s", record.ID, err)
	}
}

// drain consumes remaining lines so the runner's scanners can finish after
// the relay stops reading.
func drain(lines <-chan runner.Line) {
	for range lines {
	}
}
