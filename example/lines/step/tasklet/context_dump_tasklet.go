package tasklet

import (
	"context"
	"os"

	"github.com/tigerroll/lines_batch/example/lines/domain/lines"
	"github.com/tigerroll/lines_batch/pkg/batch/config"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// contextDumpTasklet はジョブレベルの ExecutionContext の値をファイルまたはログに出力する Tasklet です。
type contextDumpTasklet struct {
	name string
	key  string
	path string
}

// NewContextDumpTasklet はプロパティ key, path から Tasklet を作成します。
// path が空の場合はログに出力します。
func NewContextDumpTasklet(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (core.Tasklet, error) {
	t := &contextDumpTasklet{
		name: "ContextDumpTasklet",
		key:  properties["key"],
		path: properties["path"],
	}
	if t.key == "" {
		t.key = "lines"
	}
	return t, nil
}

func (t *contextDumpTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.RepeatStatus, error) {
	ec := stepExecution.ExecutionContext
	if stepExecution.JobExecution != nil {
		ec = stepExecution.JobExecution.ExecutionContext
	}
	value, ok := lines.NewExecutionContextStore(ec).Get(t.key)
	if !ok {
		logger.Warnf("Tasklet '%s': ExecutionContext にキー '%s' がありません。", t.name, t.key)
		return core.RepeatStatusFinished, nil
	}
	stepExecution.ReadCount++

	if t.path == "" {
		logger.Infof("Tasklet '%s': %s = %s", t.name, t.key, value)
		return core.RepeatStatusFinished, nil
	}
	if err := os.WriteFile(t.path, []byte(value), 0o644); err != nil {
		return core.RepeatStatusFinished, exception.NewBatchError(t.name, "出力ファイルの書き込みに失敗しました", err, false, false)
	}
	stepExecution.WriteCount++
	logger.Infof("Tasklet '%s': キー '%s' をファイル '%s' に書き込みました。", t.name, t.key, t.path)
	return core.RepeatStatusFinished, nil
}

func (t *contextDumpTasklet) Close(ctx context.Context) error {
	return nil
}
