package tasklet

import (
	"context"
	"os"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// contextSeedTasklet はファイルまたはプロパティの値をジョブレベルの ExecutionContext に書き込む Tasklet です。
type contextSeedTasklet struct {
	name  string
	key   string
	path  string
	value string
}

// NewContextSeedTasklet はプロパティ key, path, value から Tasklet を作成します。
// path が指定された場合はファイルの内容を、そうでなければ value をそのまま書き込みます。
func NewContextSeedTasklet(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (core.Tasklet, error) {
	t := &contextSeedTasklet{
		name:  "ContextSeedTasklet",
		key:   properties["key"],
		path:  properties["path"],
		value: properties["value"],
	}
	if t.key == "" {
		t.key = "lines"
	}
	if _, hasValue := properties["value"]; !hasValue && t.path == "" {
		return nil, exception.NewBatchErrorf(t.name, "プロパティ 'path' または 'value' が指定されていません")
	}
	return t, nil
}

func (t *contextSeedTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.RepeatStatus, error) {
	value := t.value
	if t.path != "" {
		data, err := os.ReadFile(t.path)
		if err != nil {
			return core.RepeatStatusFinished, exception.NewBatchError(t.name, "入力ファイルの読み込みに失敗しました", err, false, false)
		}
		value = string(data)
		logger.Infof("Tasklet '%s': ファイル '%s' を読み込みました (%d bytes)。", t.name, t.path, len(data))
	}

	ec := stepExecution.ExecutionContext
	if stepExecution.JobExecution != nil {
		ec = stepExecution.JobExecution.ExecutionContext
	}
	ec.Put(t.key, value)
	stepExecution.WriteCount++
	logger.Debugf("Tasklet '%s': ExecutionContext にキー '%s' を書き込みました。", t.name, t.key)
	return core.RepeatStatusFinished, nil
}

func (t *contextSeedTasklet) Close(ctx context.Context) error {
	return nil
}
