package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
)

func TestInMemoryJobRepository_SaveUpdateFind(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	je := core.NewJobExecution("linesJob", core.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	// 二重保存はエラー
	assert.Error(t, repo.SaveJobExecution(ctx, je))

	se := core.NewStepExecution("processLines", je)
	require.NoError(t, repo.SaveStepExecution(ctx, se))

	je.ExecutionContext.Put("lines", `[{"dob":"2000-05-10","age":24}]`)
	je.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	assert.Equal(t, 1, je.Version)

	se.ReadCount = 1
	se.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, se))

	// 保存後の変更はリポジトリに影響しない
	je.ExecutionContext.Put("lines", "changed")

	found, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	v, ok := found.ExecutionContext.GetString("lines")
	require.True(t, ok)
	assert.Equal(t, `[{"dob":"2000-05-10","age":24}]`, v)
	assert.Equal(t, core.BatchStatusStarted, found.Status)
	require.Len(t, found.StepExecutions, 1)
	assert.Equal(t, core.BatchStatusCompleted, found.StepExecutions[0].Status)
	assert.Equal(t, 1, found.StepExecutions[0].ReadCount)
	assert.Same(t, found, found.StepExecutions[0].JobExecution)
}

func TestInMemoryJobRepository_Errors(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	_, err := repo.FindJobExecutionByID(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	je := core.NewJobExecution("linesJob", core.NewJobParameters())
	err = repo.UpdateJobExecution(ctx, je)
	assert.True(t, errors.Is(err, ErrNotFound))

	// JobExecution が保存されていない StepExecution は保存できない
	se := core.NewStepExecution("processLines", je)
	err = repo.SaveStepExecution(ctx, se)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.SaveJobExecution(ctx, je))
	stale := *je
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	// 古いバージョンでの更新は拒否される
	assert.Error(t, repo.UpdateJobExecution(ctx, &stale))

	steps, err := repo.FindStepExecutionsByJobExecutionID(ctx, je.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
	assert.NoError(t, repo.Close())
}
