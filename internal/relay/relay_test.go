package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envrelay/envrelay/internal/command"
	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/relay"
	"github.com/envrelay/envrelay/internal/runner"
	"github.com/envrelay/envrelay/internal/runner/runnerfake"
	"github.com/envrelay/envrelay/internal/sanitize"
	"github.com/envrelay/envrelay/internal/storage/memory"
)

const testUUID = "123e4567-e89b-12d3-a456-426614174000"

func validRequest() model.ExecutionRequest {
	return model.ExecutionRequest{
		Command: "environment backup",
		Options: model.CommandOptions{
			{Key: "environmentId", Value: model.StringValue(testUUID)},
			{Key: "apiKey", Value: model.StringValue("aaaaaaaaaaaaaaaaaaaa")},
		},
	}
}

func newTestService(t *testing.T, r runner.Runner, repo *memory.Repository, interval time.Duration) *relay.Service {
	t.Helper()

	catalog, err := command.NewCatalog(command.CatalogConfig{})
	require.NoError(t, err)
	sanitizer, err := sanitize.NewSanitizer(sanitize.SanitizerConfig{})
	require.NoError(t, err)

	svc, err := relay.NewService(relay.ServiceConfig{
		Catalog:          catalog,
		Sanitizer:        sanitizer,
		Runner:           r,
		Repository:       repo,
		CLIPath:          "/usr/local/bin/envctl",
		ProgressInterval: interval,
	})
	require.NoError(t, err)

	return svc
}

func newMemoryRepo(t *testing.T) *memory.Repository {
	t.Helper()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	return repo
}

func TestPrepareBuildsArgumentVector(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fake, err := runnerfake.NewRunner(runnerfake.RunnerConfig{})
	require.NoError(err)
	svc := newTestService(t, fake, newMemoryRepo(t), time.Millisecond)

	exec, err := svc.Prepare(context.Background(), validRequest(), "10.0.0.1")
	require.NoError(err)

	assert.Equal([]string{
		"environment", "backup",
		"--environment-id", testUUID,
		"--api-key", "aaaaaaaaaaaaaaaaaaaa",
	}, exec.Args)
	assert.NotEmpty(exec.ID)
	assert.Equal("10.0.0.1", exec.ClientID)

	// Preparation never spawns anything.
	assert.Equal(0, fake.Starts())
}

func TestPrepareRejectsInvalidRequestsSynchronously(t *testing.T) {
	tests := map[string]struct {
		req       model.ExecutionRequest
		expErrMsg string
	}{
		"Missing required option should fail naming the option": {
			req: model.ExecutionRequest{
				Command: "environment backup",
				Options: model.CommandOptions{
					{Key: "environmentId", Value: model.StringValue(testUUID)},
				},
			},
			expErrMsg: `"apiKey"`,
		},

		"Malformed UUID should fail in sanitization": {
			req: model.ExecutionRequest{
				Command: "environment backup",
				Options: model.CommandOptions{
					{Key: "environmentId", Value: model.StringValue("nope")},
					{Key: "apiKey", Value: model.StringValue("aaaaaaaaaaaaaaaaaaaa")},
				},
			},
			expErrMsg: "must be a valid UUID",
		},

		"Unknown command should fail": {
			req:       model.ExecutionRequest{Command: "environment explode"},
			expErrMsg: "unknown command",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			fake, err := runnerfake.NewRunner(runnerfake.RunnerConfig{})
			require.NoError(t, err)
			svc := newTestService(t, fake, newMemoryRepo(t), time.Millisecond)

			_, err = svc.Prepare(context.Background(), test.req, "10.0.0.1")

			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrNotValid))
			assert.Contains(t, err.Error(), test.expErrMsg)
			assert.Equal(t, 0, fake.Starts())
		})
	}
}

func TestRunSuccessfulExecution(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fake, err := runnerfake.NewRunner(runnerfake.RunnerConfig{
		Lines: []runner.Line{
			{Stream: runner.StreamStdout, Text: "Backing up content..."},
			{Stream: runner.StreamStdout, Text: "Progress: 50%"},
			{Stream: runner.StreamStderr, Text: "warning: slow connection"},
			{Stream: runner.StreamStdout, Text: "done"},
		},
		Result: runner.Result{ExitCode: 0},
	})
	require.NoError(err)

	repo := newMemoryRepo(t)
	svc := newTestService(t, fake, repo, time.Nanosecond)

	exec, err := svc.Prepare(context.Background(), validRequest(), "10.0.0.1")
	require.NoError(err)

	var events []model.StreamEvent
	err = svc.Run(context.Background(), exec, func(ev model.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(err)

	require.NotEmpty(events)
	assert.Equal(model.EventConnected, events[0].Type)

	// The terminal event is a successful Complete and nothing follows it.
	last := events[len(events)-1]
	assert.Equal(model.EventComplete, last.Type)
	require.NotNil(last.Success)
	assert.True(*last.Success)

	var outputs, progresses, completes int
	for _, ev := range events {
		switch ev.Type {
		case model.EventOutput:
			outputs++
		case model.EventProgress:
			progresses++
		case model.EventComplete:
			completes++
		}
	}
	assert.Equal(4, outputs)
	assert.Equal(2, progresses) // stage line + numeric line.
	assert.Equal(1, completes)

	// stderr lines are relayed at error level.
	var stderrSeen bool
	for _, ev := range events {
		if ev.Type == model.EventOutput && ev.Level == model.OutputLevelError {
			stderrSeen = true
			assert.Equal("warning: slow connection", ev.Message)
		}
	}
	assert.True(stderrSeen)

	// The history record is terminal and successful.
	got, err := repo.GetExecution(context.Background(), exec.ID)
	require.NoError(err)
	assert.Equal(model.ExecutionStatusSucceeded, got.Status)
	require.NotNil(got.FinishedAt)
}

func TestRunNonZeroExitIsCompleteFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fake, err := runnerfake.NewRunner(runnerfake.RunnerConfig{
		Result: runner.Result{ExitCode: 2},
	})
	require.NoError(err)

	repo := newMemoryRepo(t)
	svc := newTestService(t, fake, repo, time.Millisecond)

	exec, err := svc.Prepare(context.Background(), validRequest(), "10.0.0.1")
	require.NoError(err)

	var events []model.StreamEvent
	err = svc.Run(context.Background(), exec, func(ev model.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(err)

	// A command that ran and failed completes unsuccessfully, it is not an
	// infrastructure error.
	last := events[len(events)-1]
	assert.Equal(model.EventComplete, last.Type)
	require.NotNil(last.Success)
	assert.False(*last.Success)
	assert.Contains(last.Message, "exited with code 2")

	got, err := repo.GetExecution(context.Background(), exec.ID)
	require.NoError(err)
	assert.Equal(model.ExecutionStatusFailed, got.Status)
	assert.Equal(2, got.ExitCode)
}

func TestRunSpawnFailureIsErrorEvent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fake, err := runnerfake.NewRunner(runnerfake.RunnerConfig{
		StartErr: errors.New("CLI executable \"/usr/local/bin/envctl\" not found, build or install it first"),
	})
	require.NoError(err)

	repo := newMemoryRepo(t)
	svc := newTestService(t, fake, repo, time.Millisecond)

	exec, err := svc.Prepare(context.Background(), validRequest(), "10.0.0.1")
	require.NoError(err)

	var events []model.StreamEvent
	err = svc.Run(context.Background(), exec, func(ev model.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(err)

	require.Len(events, 2)
	assert.Equal(model.EventConnected, events[0].Type)
	assert.Equal(model.EventError, events[1].Type)
	assert.Contains(events[1].Message, "could not start command")
	assert.NotEmpty(events[1].Solution)

	got, err := repo.GetExecution(context.Background(), exec.ID)
	require.NoError(err)
	assert.Equal(model.ExecutionStatusFailed, got.Status)
}

func TestRunCancellationKillsProcessAndEndsStream(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fake, err := runnerfake.NewRunner(runnerfake.RunnerConfig{
		Lines: []runner.Line{
			{Stream: runner.StreamStdout, Text: "working..."},
		},
		Block: true, // Never exits on its own.
	})
	require.NoError(err)

	repo := newMemoryRepo(t)
	svc := newTestService(t, fake, repo, time.Millisecond)

	exec, err := svc.Prepare(context.Background(), validRequest(), "10.0.0.1")
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan model.StreamEvent, 16)
	runDone := make(chan error, 1)
	go func() {
		runDone <- svc.Run(ctx, exec, func(ev model.StreamEvent) error {
			events <- ev
			return nil
		})
	}()

	// Wait for the first output line, then cancel mid-flight.
	require.Eventually(func() bool {
		return len(fake.Handles()) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-runDone:
		require.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancellation")
	}

	h := fake.Handles()[0]
	assert.GreaterOrEqual(h.Kills(), 1)

	// No terminal event was emitted, the stream simply ended.
	close(events)
	for ev := range events {
		assert.NotEqual(model.EventComplete, ev.Type)
		assert.NotEqual(model.EventError, ev.Type)
	}

	got, err := repo.GetExecution(context.Background(), exec.ID)
	require.NoError(err)
	assert.Equal(model.ExecutionStatusCancelled, got.Status)
}

func TestRunProgressEventsAreSpaced(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var lines []runner.Line
	for i := 0; i < 10; i++ {
		lines = append(lines, runner.Line{Stream: runner.StreamStdout, Text: "Progress: 50%"})
	}

	fake, err := runnerfake.NewRunner(runnerfake.RunnerConfig{
		Lines:  lines,
		Result: runner.Result{ExitCode: 0},
	})
	require.NoError(err)

	svc := newTestService(t, fake, newMemoryRepo(t), time.Hour)

	exec, err := svc.Prepare(context.Background(), validRequest(), "10.0.0.1")
	require.NoError(err)

	var outputs, progresses int
	err = svc.Run(context.Background(), exec, func(ev model.StreamEvent) error {
		switch ev.Type {
		case model.EventOutput:
			outputs++
		case model.EventProgress:
			progresses++
		}
		return nil
	})
	require.NoError(err)

	// Raw output is never rate limited, progress is.
	assert.Equal(10, outputs)
	assert.Equal(1, progresses)
}
