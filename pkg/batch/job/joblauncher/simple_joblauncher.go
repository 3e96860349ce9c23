package joblauncher

import (
	"context"
	"fmt"
	"sync"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// JobCreator は名前から Job を生成します。factory.JobFactory が実装します。
type JobCreator interface {
	CreateJob(jobName string) (core.Job, error)
}

// SimpleJobLauncher は JobLauncher インターフェースのシンプルな実装です。
// JobExecution の基本的なライフサイクル管理と JobRepository を使用した永続化を行います。
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobFactory    JobCreator

	mu                     sync.Mutex
	activeJobCancellations map[string]context.CancelFunc
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)

// NewSimpleJobLauncher は新しい SimpleJobLauncher のインスタンスを作成します。
func NewSimpleJobLauncher(jobRepository repository.JobRepository, jobFactory JobCreator) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository:          jobRepository,
		jobFactory:             jobFactory,
		activeJobCancellations: make(map[string]context.CancelFunc),
	}
}

func (l *SimpleJobLauncher) registerCancelFunc(executionID string, cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeJobCancellations[executionID] = cancel
}

func (l *SimpleJobLauncher) unregisterCancelFunc(executionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cancel, ok := l.activeJobCancellations[executionID]; ok {
		cancel()
		delete(l.activeJobCancellations, executionID)
	}
}

// Stop は実行中のジョブにキャンセルを通知します。
// 該当する実行が見つからない場合は false を返します。
func (l *SimpleJobLauncher) Stop(executionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cancel, ok := l.activeJobCancellations[executionID]
	if ok {
		logger.Infof("JobExecution (ID: %s) に停止を要求します。", executionID)
		cancel()
	}
	return ok
}

// Launch は指定された Job を JobParameters とともに起動し、JobExecution を管理します。
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error) {
	logger.Infof("JobLauncher を使用して Job '%s' を起動します。", jobName)

	batchJob, err := l.jobFactory.CreateJob(jobName)
	if err != nil {
		logger.Errorf("Job '%s' の作成に失敗しました: %v", jobName, err)
		return nil, exception.NewBatchError("job_launcher", fmt.Sprintf("Job '%s' の作成に失敗しました", jobName), err, false, false)
	}

	jobExecution := core.NewJobExecution(jobName, params)
	jobCtx, cancel := context.WithCancel(ctx)
	jobExecution.CancelFunc = cancel
	l.registerCancelFunc(jobExecution.ID, cancel)
	defer l.unregisterCancelFunc(jobExecution.ID)

	if err := l.jobRepository.SaveJobExecution(jobCtx, jobExecution); err != nil {
		logger.Errorf("JobExecution (ID: %s) の初期永続化に失敗しました: %v", jobExecution.ID, err)
		return jobExecution, exception.NewBatchError("job_launcher", "起動処理エラー: JobExecution の初期保存に失敗しました", err, false, false)
	}

	jobExecution.MarkAsStarted()
	if err := l.jobRepository.UpdateJobExecution(jobCtx, jobExecution); err != nil {
		logger.Errorf("JobExecution (ID: %s) の Started 状態への更新に失敗しました: %v", jobExecution.ID, err)
		jobExecution.MarkAsFailed(err)
		return jobExecution, exception.NewBatchError("job_launcher", "JobExecution 状態更新エラー (Started)", err, false, false)
	}

	logger.Infof("Job '%s' (Execution ID: %s) を実行します。", jobName, jobExecution.ID)
	runErr := batchJob.Run(jobCtx, jobExecution)

	// キャンセル後でも最終状態は記録する
	if updateErr := l.jobRepository.UpdateJobExecution(context.WithoutCancel(jobCtx), jobExecution); updateErr != nil {
		logger.Errorf("JobExecution (ID: %s) の最終状態の更新に失敗しました: %v", jobExecution.ID, updateErr)
		if runErr == nil {
			runErr = exception.NewBatchError("job_launcher", "JobExecution 最終状態の永続化に失敗しました", updateErr, false, false)
		}
	} else {
		logger.Debugf("JobExecution (ID: %s) を最終状態 (%s) に更新しました。", jobExecution.ID, jobExecution.Status)
	}

	return jobExecution, runErr
}
