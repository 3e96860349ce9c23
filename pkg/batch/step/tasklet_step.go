package step

import (
	"context"
	"errors"
	"fmt"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// ErrStepFailed は StepExecutionListener によってステップが失敗扱いにされたことを示します。
var ErrStepFailed = errors.New("step marked as failed")

// TaskletStep は Tasklet インターフェースをラップし、core.Step インターフェースを実装します。
// 実行順序は BeforeStep → Execute (CONTINUABLE の間繰り返し) → Close → AfterStep → 永続化 です。
type TaskletStep struct {
	name          string
	tasklet       core.Tasklet
	stepListeners []core.StepExecutionListener
	jobRepository repository.JobRepository
}

// TaskletStep が core.Step インターフェースを満たすことを確認します。
var _ core.Step = (*TaskletStep)(nil)

// NewTaskletStep は新しい TaskletStep のインスタンスを作成します。
func NewTaskletStep(
	name string,
	tasklet core.Tasklet,
	jobRepository repository.JobRepository,
	stepListeners []core.StepExecutionListener,
) *TaskletStep {
	return &TaskletStep{
		name:          name,
		tasklet:       tasklet,
		jobRepository: jobRepository,
		stepListeners: stepListeners,
	}
}

// StepName はステップ名を返します。
func (s *TaskletStep) StepName() string {
	return s.name
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *core.StepExecution) {
	for _, l := range s.stepListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *core.StepExecution) {
	for _, l := range s.stepListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// runTasklet は Tasklet が FINISHED を返すかエラーになるまで Execute を繰り返します。
// 各反復の前に ctx のキャンセルを確認します。
func (s *TaskletStep) runTasklet(ctx context.Context, stepExecution *core.StepExecution) error {
	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		status, err := s.tasklet.Execute(ctx, stepExecution)
		if err != nil {
			return err
		}
		logger.Debugf("Taskletステップ '%s': %d 回目の実行が終了しました。RepeatStatus: %s", s.name, i, status)
		if status != core.RepeatStatusContinue {
			return nil
		}
	}
}

// Execute は TaskletStep の処理を実行します。
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *core.JobExecution, stepExecution *core.StepExecution) error {
	logger.Infof("Taskletステップ '%s' (Execution ID: %s) を開始します。", s.name, stepExecution.ID)
	stepExecution.MarkAsStarted()

	s.notifyBeforeStep(ctx, stepExecution)

	var execErr error
	if stepExecution.Status == core.BatchStatusFailed {
		logger.Warnf("Taskletステップ '%s': BeforeStep でステップが失敗扱いにされたため Tasklet を実行しません。", s.name)
	} else {
		execErr = s.runTasklet(ctx, stepExecution)
	}

	if err := s.tasklet.Close(ctx); err != nil {
		logger.Errorf("Taskletステップ '%s': Tasklet のクローズに失敗しました: %v", s.name, err)
		stepExecution.AddFailureException(err)
	}

	switch {
	case execErr == nil:
	case errors.Is(execErr, context.Canceled), errors.Is(execErr, context.DeadlineExceeded):
		logger.Warnf("Taskletステップ '%s' はキャンセルされました: %v", s.name, execErr)
		stepExecution.MarkAsStopped()
		stepExecution.AddFailureException(execErr)
	default:
		logger.Errorf("Taskletステップ '%s' の実行中にエラーが発生しました: %v", s.name, execErr)
		stepExecution.MarkAsFailed(execErr)
	}

	s.notifyAfterStep(ctx, stepExecution)

	var result error
	switch {
	case execErr != nil:
		result = exception.NewBatchError(s.name, "Tasklet 実行エラー", execErr, false, false)
	case stepExecution.Status == core.BatchStatusFailed:
		cause := ErrStepFailed
		if n := len(stepExecution.Failures); n > 0 {
			cause = fmt.Errorf("%w: %w", ErrStepFailed, stepExecution.Failures[n-1])
		}
		result = exception.NewBatchError(s.name, "ステップがリスナーによって失敗扱いにされました", cause, false, false)
	default:
		stepExecution.MarkAsCompleted()
	}

	// コンテキストがキャンセルされていても状態は記録する
	if err := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); err != nil {
		logger.Errorf("Taskletステップ '%s': StepExecution の更新に失敗しました: %v", s.name, err)
		if result == nil {
			stepExecution.MarkAsFailed(err)
			result = exception.NewBatchError(s.name, "StepExecution の更新エラー", err, true, false)
		}
	}

	if result != nil {
		return result
	}
	logger.Infof("Taskletステップ '%s' が正常に完了しました。ExitStatus: %s", s.name, stepExecution.ExitStatus)
	return nil
}
