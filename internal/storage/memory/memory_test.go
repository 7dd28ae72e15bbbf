package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/storage/memory"
)

func TestRepositoryExecutionLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	ctx := context.Background()

	exec := model.Execution{
		ID:        "01JEXAMPLE",
		Command:   "environment backup",
		Args:      []string{"environment", "backup", "--api-key", "x"},
		Status:    model.ExecutionStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	require.NoError(repo.CreateExecution(ctx, exec))

	// Duplicated IDs are rejected.
	err = repo.CreateExecution(ctx, exec)
	require.Error(err)
	assert.True(errors.Is(err, model.ErrNotValid))

	got, err := repo.GetExecution(ctx, exec.ID)
	require.NoError(err)
	assert.Equal(exec, *got)

	finished := time.Now().UTC()
	exec.Status = model.ExecutionStatusSucceeded
	exec.FinishedAt = &finished
	require.NoError(repo.UpdateExecution(ctx, exec))

	got, err = repo.GetExecution(ctx, exec.ID)
	require.NoError(err)
	assert.Equal(model.ExecutionStatusSucceeded, got.Status)
	require.NotNil(got.FinishedAt)
}

func TestRepositoryMissingExecution(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	ctx := context.Background()

	_, err = repo.GetExecution(ctx, "missing")
	require.Error(err)
	assert.True(errors.Is(err, model.ErrNotFound))

	err = repo.UpdateExecution(ctx, model.Execution{ID: "missing"})
	require.Error(err)
	assert.True(errors.Is(err, model.ErrNotFound))
}

func TestRepositoryListExecutionsNewestFirst(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"older", "newest", "middle"} {
		offsets := []time.Duration{-2 * time.Hour, 0, -1 * time.Hour}
		require.NoError(repo.CreateExecution(ctx, model.Execution{
			ID:        id,
			Command:   "environment sync",
			Status:    model.ExecutionStatusSucceeded,
			StartedAt: base.Add(offsets[i]),
		}))
	}

	got, err := repo.ListExecutions(ctx)
	require.NoError(err)
	require.Len(got, 3)
	assert.Equal("newest", got[0].ID)
	assert.Equal("middle", got[1].ID)
	assert.Equal("older", got[2].ID)
}
