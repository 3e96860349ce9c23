package tasklet

import (
	"context"
	"time"

	"github.com/tigerroll/lines_batch/example/lines/domain/lines"
	"github.com/tigerroll/lines_batch/pkg/batch/config"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// LinesProcessor はジョブレベルの ExecutionContext にある Line のリストの age を更新する Tasklet です。
// BeforeStep で読み込み、Execute で更新し、AfterStep で書き戻します。
type LinesProcessor struct {
	name   string
	key    string
	policy lines.ErrorPolicy
	loc    *time.Location
	now    func() time.Time

	updater *lines.Updater
	loadErr error
}

// NewLinesProcessor は JSL のプロパティ (key, errorPolicy) から LinesProcessor を作成します。
// 年の判定には system.timezone のタイムゾーンを使用します。
func NewLinesProcessor(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (*LinesProcessor, error) {
	policy, err := lines.ParseErrorPolicy(properties["errorPolicy"])
	if err != nil {
		return nil, exception.NewBatchErrorf("lines_processor", "プロパティ 'errorPolicy' が不正です: %v", err)
	}
	key := properties["key"]
	if key == "" {
		key = lines.DefaultKey
	}

	loc := time.UTC
	if cfg != nil && cfg.System.Timezone != "" {
		if l, err := time.LoadLocation(cfg.System.Timezone); err == nil {
			loc = l
		} else {
			logger.Warnf("タイムゾーン '%s' をロードできないため UTC を使用します: %v", cfg.System.Timezone, err)
		}
	}

	return &LinesProcessor{
		name:   "LinesProcessor",
		key:    key,
		policy: policy,
		loc:    loc,
		now:    time.Now,
	}, nil
}

// currentTime は system.timezone での現在時刻を返します。
func (t *LinesProcessor) currentTime() time.Time {
	return t.now().In(t.loc)
}

// BeforeStep は Updater をジョブレベルの ExecutionContext に結び付けてリストを読み込みます。
func (t *LinesProcessor) BeforeStep(ctx context.Context, stepExecution *core.StepExecution) {
	ec := stepExecution.ExecutionContext
	if stepExecution.JobExecution != nil {
		ec = stepExecution.JobExecution.ExecutionContext
	}
	t.updater = lines.NewUpdater(
		lines.NewExecutionContextStore(ec),
		lines.WithKey(t.key),
		lines.WithErrorPolicy(t.policy),
		lines.WithClock(t.currentTime),
	)
	t.loadErr = t.updater.Load(ctx)
	if t.loadErr != nil {
		logger.Errorf("Tasklet '%s': キー '%s' の読み込みに失敗しました: %v", t.name, t.key, t.loadErr)
		return
	}
	stepExecution.ReadCount = len(t.updater.Lines())
}

// Execute は読み込んだリストの age を更新します。
func (t *LinesProcessor) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.RepeatStatus, error) {
	if t.updater == nil {
		return core.RepeatStatusFinished, exception.NewBatchErrorf(t.name, "BeforeStep が呼び出されていません")
	}
	if t.loadErr != nil {
		return core.RepeatStatusFinished, t.loadErr
	}
	logger.Infof("Tasklet '%s': %d 件のレコードの age を更新します。", t.name, len(t.updater.Lines()))
	return t.updater.Transform(ctx)
}

// Close は何も解放しません。AfterStep で書き戻すため Updater は保持したままにします。
func (t *LinesProcessor) Close(ctx context.Context) error {
	logger.Debugf("Tasklet '%s' をクローズします。", t.name)
	return nil
}

// AfterStep はリストを ExecutionContext に書き戻します。失敗した場合はステップを失敗扱いにします。
func (t *LinesProcessor) AfterStep(ctx context.Context, stepExecution *core.StepExecution) {
	if t.updater == nil {
		return
	}
	defer func() { t.updater = nil }()

	if err := t.updater.Save(ctx); err != nil {
		logger.Errorf("Tasklet '%s': キー '%s' の書き戻しに失敗しました: %v", t.name, t.key, err)
		stepExecution.MarkAsFailed(err)
		return
	}
	if t.loadErr == nil {
		stepExecution.WriteCount = len(t.updater.Lines())
	}
}

var (
	_ core.Tasklet               = (*LinesProcessor)(nil)
	_ core.StepExecutionListener = (*LinesProcessor)(nil)
)
