package listener

import (
	"context"
	"time"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// LoggingJobListener はジョブの開始と終了をログに出力する JobExecutionListener です。
type LoggingJobListener struct {
	config *config.LoggingConfig
}

func NewLoggingJobListener(cfg *config.LoggingConfig) *LoggingJobListener {
	return &LoggingJobListener{config: cfg}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *core.JobExecution) {
	logger.Infof("Job '%s' (Execution ID: %s) の実行を開始します。", jobExecution.JobName, jobExecution.ID)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *core.JobExecution) {
	duration := time.Since(jobExecution.StartTime).Truncate(time.Millisecond)
	if jobExecution.Status != core.BatchStatusCompleted {
		logger.Errorf("Job '%s' が %s で終了しました (処理時間: %s): %v", jobExecution.JobName, jobExecution.Status, duration, jobExecution.Failures)
		return
	}
	logger.Infof("Job '%s' の実行が正常に完了しました (処理時間: %s)。", jobExecution.JobName, duration)
}

var _ core.JobExecutionListener = (*LoggingJobListener)(nil)
