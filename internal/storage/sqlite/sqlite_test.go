package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/storage/sqlite"
)

func newTestRepository(t *testing.T) *sqlite.Repository {
	t.Helper()

	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "envrelay.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestRepositoryExecutionLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := newTestRepository(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	exec := model.Execution{
		ID:        "01JEXAMPLE",
		Command:   "environment backup",
		Args:      []string{"environment", "backup", "--environment-id", "x"},
		ClientID:  "10.0.0.1",
		Status:    model.ExecutionStatusRunning,
		StartedAt: started,
	}

	require.NoError(repo.CreateExecution(ctx, exec))

	got, err := repo.GetExecution(ctx, exec.ID)
	require.NoError(err)
	assert.Equal(exec, *got)

	finished := started.Add(5 * time.Second)
	exec.Status = model.ExecutionStatusFailed
	exec.ExitCode = 2
	exec.Error = "command exited with code 2"
	exec.FinishedAt = &finished
	require.NoError(repo.UpdateExecution(ctx, exec))

	got, err = repo.GetExecution(ctx, exec.ID)
	require.NoError(err)
	assert.Equal(model.ExecutionStatusFailed, got.Status)
	assert.Equal(2, got.ExitCode)
	require.NotNil(got.FinishedAt)
	assert.Equal(finished, *got.FinishedAt)
}

func TestRepositoryMissingExecution(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetExecution(ctx, "missing")
	require.Error(err)
	assert.True(errors.Is(err, model.ErrNotFound))

	err = repo.UpdateExecution(ctx, model.Execution{ID: "missing"})
	require.Error(err)
	assert.True(errors.Is(err, model.ErrNotFound))
}

func TestRepositoryListExecutionsNewestFirst(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	executions := []model.Execution{
		{ID: "older", Command: "environment sync", Args: []string{}, Status: model.ExecutionStatusSucceeded, StartedAt: base.Add(-2 * time.Hour)},
		{ID: "newest", Command: "environment sync", Args: []string{}, Status: model.ExecutionStatusSucceeded, StartedAt: base},
		{ID: "middle", Command: "environment sync", Args: []string{}, Status: model.ExecutionStatusSucceeded, StartedAt: base.Add(-1 * time.Hour)},
	}
	for _, e := range executions {
		require.NoError(repo.CreateExecution(ctx, e))
	}

	got, err := repo.ListExecutions(ctx)
	require.NoError(err)
	require.Len(got, 3)
	assert.Equal("newest", got[0].ID)
	assert.Equal("middle", got[1].ID)
	assert.Equal("older", got[2].ID)
}
