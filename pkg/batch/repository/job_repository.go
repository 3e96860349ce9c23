package repository

import (
	"context"
	"errors"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
)

// ErrNotFound は指定された実行が見つからないことを示します。
var ErrNotFound = errors.New("not found")

// JobRepository はバッチ実行のメタデータと ExecutionContext を永続化するためのインターフェースです。
// ジョブレベルの ExecutionContext はここを通じてジョブのライフサイクル全体で保持されます。
type JobRepository interface {
	// SaveJobExecution は新しい JobExecution を永続化します。
	SaveJobExecution(ctx context.Context, jobExecution *core.JobExecution) error
	// UpdateJobExecution は既存の JobExecution の状態と ExecutionContext を更新します。
	UpdateJobExecution(ctx context.Context, jobExecution *core.JobExecution) error
	// FindJobExecutionByID は指定された ID の JobExecution を検索します。
	// 関連する StepExecution もロードされます。
	FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error)

	// SaveStepExecution は新しい StepExecution を永続化します。
	SaveStepExecution(ctx context.Context, stepExecution *core.StepExecution) error
	// UpdateStepExecution は既存の StepExecution の状態を更新します。
	UpdateStepExecution(ctx context.Context, stepExecution *core.StepExecution) error
	// FindStepExecutionsByJobExecutionID は JobExecution に紐づく StepExecution を開始順に返します。
	FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error)

	// Close はリポジトリが保持するリソースを解放します。
	Close() error
}
