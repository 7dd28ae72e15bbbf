package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/runner"
)

const shellPath = "/bin/sh"

func collect(t *testing.T, h runner.Handle) ([]runner.Line, runner.Result) {
	t.Helper()

	var lines []runner.Line
	for line := range h.Lines() {
		lines = append(lines, line)
	}

	select {
	case res := <-h.Done():
		return lines, res
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for process result")
		return nil, runner.Result{}
	}
}

func TestExecRunnerCapturesStreamsAndExitCode(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r, err := runner.NewExecRunner(runner.ExecRunnerConfig{})
	require.NoError(err)

	h, err := r.Start(context.Background(), runner.Spec{
		CLIPath: shellPath,
		Args:    []string{"-c", "echo out1; echo err1 1>&2; echo out2; exit 3"},
	})
	require.NoError(err)

	lines, res := collect(t, h)

	var stdout, stderr []string
	for _, l := range lines {
		switch l.Stream {
		case runner.StreamStdout:
			stdout = append(stdout, l.Text)
		case runner.StreamStderr:
			stderr = append(stderr, l.Text)
		}
	}

	assert.Equal([]string{"out1", "out2"}, stdout)
	assert.Equal([]string{"err1"}, stderr)
	assert.Equal(3, res.ExitCode)
	assert.NoError(res.Err)
	assert.False(res.TimedOut)
}

func TestExecRunnerSuccessExitCode(t *testing.T) {
	require := require.New(t)

	r, err := runner.NewExecRunner(runner.ExecRunnerConfig{})
	require.NoError(err)

	h, err := r.Start(context.Background(), runner.Spec{
		CLIPath: shellPath,
		Args:    []string{"-c", "true"},
	})
	require.NoError(err)

	_, res := collect(t, h)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunnerMissingExecutableFailsFast(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r, err := runner.NewExecRunner(runner.ExecRunnerConfig{})
	require.NoError(err)

	h, err := r.Start(context.Background(), runner.Spec{
		CLIPath: "/definitely/not/a/real/cli",
	})

	require.Error(err)
	assert.True(errors.Is(err, model.ErrCLINotFound))
	assert.Nil(h)
	assert.Contains(err.Error(), "build or install it first")
}

func TestExecRunnerRuntimePrefix(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r, err := runner.NewExecRunner(runner.ExecRunnerConfig{})
	require.NoError(err)

	// Run a shell script through an explicit interpreter: the CLI path
	// becomes the interpreter's first argument.
	h, err := r.Start(context.Background(), runner.Spec{
		Runtime: shellPath,
		CLIPath: "/dev/stdin",
	})
	require.NoError(err)

	_, res := collect(t, h)
	assert.Equal(0, res.ExitCode)
}

func TestExecRunnerTimeoutKillsProcess(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r, err := runner.NewExecRunner(runner.ExecRunnerConfig{})
	require.NoError(err)

	h, err := r.Start(context.Background(), runner.Spec{
		CLIPath: shellPath,
		Args:    []string{"-c", "sleep 30"},
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(err)

	_, res := collect(t, h)

	assert.True(res.TimedOut)
	assert.NotEqual(0, res.ExitCode)
}

func TestExecRunnerKillIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r, err := runner.NewExecRunner(runner.ExecRunnerConfig{})
	require.NoError(err)

	h, err := r.Start(context.Background(), runner.Spec{
		CLIPath: shellPath,
		Args:    []string{"-c", "sleep 30"},
	})
	require.NoError(err)

	h.Kill()
	_, res := collect(t, h)
	assert.NotEqual(0, res.ExitCode)

	// Killing after exit must not panic or error.
	h.Kill()
	h.Kill()
}

func TestExecRunnerContextCancellationKillsProcess(t *testing.T) {
	require := require.New(t)

	r, err := runner.NewExecRunner(runner.ExecRunnerConfig{})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := r.Start(ctx, runner.Spec{
		CLIPath: shellPath,
		Args:    []string{"-c", "sleep 30"},
	})
	require.NoError(err)

	cancel()

	_, res := collect(t, h)
	assert.NotEqual(t, 0, res.ExitCode)
}
