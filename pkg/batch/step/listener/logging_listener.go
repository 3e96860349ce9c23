package listener

import (
	"context"
	"time"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// LoggingListener はステップの開始と終了をログに出力する StepExecutionListener です。
type LoggingListener struct {
	config *config.LoggingConfig
}

// NewLoggingListener は新しい LoggingListener を作成します。
func NewLoggingListener(cfg *config.LoggingConfig) *LoggingListener {
	return &LoggingListener{config: cfg}
}

func (l *LoggingListener) BeforeStep(ctx context.Context, stepExecution *core.StepExecution) {
	logger.Infof("ステップ '%s' を開始します。", stepExecution.StepName)
	logger.Debugf("ステップ '%s' 開始時の ExecutionContext: %+v", stepExecution.StepName, stepExecution.ExecutionContext)
}

func (l *LoggingListener) AfterStep(ctx context.Context, stepExecution *core.StepExecution) {
	duration := time.Since(stepExecution.StartTime).Truncate(time.Millisecond)
	if stepExecution.Status == core.BatchStatusFailed || stepExecution.Status == core.BatchStatusStopped {
		logger.Errorf("ステップ '%s' がエラーで終了しました (Status: %s, Failures: %v)。", stepExecution.StepName, stepExecution.Status, stepExecution.Failures)
		return
	}
	logger.WithFields(map[string]interface{}{
		"step":     stepExecution.StepName,
		"read":     stepExecution.ReadCount,
		"write":    stepExecution.WriteCount,
		"duration": duration.String(),
	}).Info("ステップが完了しました。")
}

var _ core.StepExecutionListener = (*LoggingListener)(nil)
