package job

import (
	"context"
	"errors"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// SimpleJob はステップを定義順に逐次実行する core.Job の実装です。
// 最初に失敗したステップでジョブを停止します。
type SimpleJob struct {
	name          string
	steps         []core.Step
	listeners     []core.JobExecutionListener
	jobRepository repository.JobRepository
}

var _ core.Job = (*SimpleJob)(nil)

// NewSimpleJob は新しい SimpleJob を作成します。
func NewSimpleJob(name string, steps []core.Step, listeners []core.JobExecutionListener, jobRepository repository.JobRepository) *SimpleJob {
	return &SimpleJob{
		name:          name,
		steps:         steps,
		listeners:     listeners,
		jobRepository: jobRepository,
	}
}

func (j *SimpleJob) JobName() string {
	return j.name
}

// Steps はジョブのステップを実行順に返します。
func (j *SimpleJob) Steps() []core.Step {
	return j.steps
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Run はジョブを実行します。
// 各ステップの終了後に JobExecution (ジョブレベルの ExecutionContext を含む) を永続化します。
func (j *SimpleJob) Run(ctx context.Context, jobExecution *core.JobExecution) error {
	for _, l := range j.listeners {
		l.BeforeJob(ctx, jobExecution)
	}

	var runErr error
	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		stepExecution := core.NewStepExecution(step.StepName(), jobExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			runErr = exception.NewBatchError("job", "StepExecution の保存に失敗しました", err, true, false)
			break
		}

		stepErr := step.Execute(ctx, jobExecution, stepExecution)

		if err := j.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); err != nil {
			logger.Errorf("Job '%s': ステップ '%s' 終了後の JobExecution の更新に失敗しました: %v", j.name, step.StepName(), err)
			if stepErr == nil {
				stepErr = err
			}
		}
		if stepErr != nil {
			runErr = stepErr
			break
		}
	}

	switch {
	case runErr == nil:
		jobExecution.MarkAsCompleted()
	case isCancellation(runErr):
		jobExecution.MarkAsStopped()
		jobExecution.AddFailureException(runErr)
	default:
		jobExecution.MarkAsFailed(runErr)
	}

	for _, l := range j.listeners {
		l.AfterJob(ctx, jobExecution)
	}
	return runErr
}
