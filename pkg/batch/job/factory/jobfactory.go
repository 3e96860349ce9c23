package factory

import (
	"fmt"
	"sync"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/job"
	"github.com/tigerroll/lines_batch/pkg/batch/job/component"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/job/jsl"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/step"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// JobFactory は JSL 定義と登録済みビルダーから Job オブジェクトを生成するためのファクトリです。
type JobFactory struct {
	config        *config.Config
	jobRepository repository.JobRepository

	mu                   sync.RWMutex
	taskletBuilders      map[string]component.TaskletBuilder
	jobListenerBuilders  map[string]component.JobListenerBuilder
	stepListenerBuilders map[string]component.StepExecutionListenerBuilder
}

// NewJobFactory は新しい JobFactory のインスタンスを作成します。
func NewJobFactory(cfg *config.Config, repo repository.JobRepository) *JobFactory {
	return &JobFactory{
		config:               cfg,
		jobRepository:        repo,
		taskletBuilders:      make(map[string]component.TaskletBuilder),
		jobListenerBuilders:  make(map[string]component.JobListenerBuilder),
		stepListenerBuilders: make(map[string]component.StepExecutionListenerBuilder),
	}
}

// RegisterTaskletBuilder は、指定された名前で Tasklet ビルド関数を登録します。
// このメソッドはアプリケーションの初期化フェーズで呼び出されます。
func (f *JobFactory) RegisterTaskletBuilder(name string, builder component.TaskletBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskletBuilders[name] = builder
	logger.Debugf("JobFactory: Tasklet ビルダー '%s' を登録しました。", name)
}

// RegisterJobListenerBuilder は、指定された名前で JobExecutionListener ビルド関数を登録します。
func (f *JobFactory) RegisterJobListenerBuilder(name string, builder component.JobListenerBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobListenerBuilders[name] = builder
	logger.Debugf("JobFactory: JobExecutionListener ビルダー '%s' を登録しました。", name)
}

// RegisterStepExecutionListenerBuilder は、指定された名前で StepExecutionListener ビルド関数を登録します。
func (f *JobFactory) RegisterStepExecutionListenerBuilder(name string, builder component.StepExecutionListenerBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stepListenerBuilders[name] = builder
	logger.Debugf("JobFactory: StepExecutionListener ビルダー '%s' を登録しました。", name)
}

// CreateJob は、ロード済みの JSL 定義から指定されたジョブIDの Job を生成します。
func (f *JobFactory) CreateJob(jobName string) (core.Job, error) {
	jobDef, ok := jsl.GetJobDefinition(jobName)
	if !ok {
		return nil, exception.NewBatchErrorf("job_factory", "指定されたジョブ '%s' の JSL 定義が見つかりません", jobName)
	}
	return f.CreateJobFromDefinition(jobDef)
}

// CreateJobFromDefinition は JSL 定義から Job を生成します。
func (f *JobFactory) CreateJobFromDefinition(jobDef jsl.Job) (core.Job, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	jobListeners := make([]core.JobExecutionListener, 0, len(jobDef.Listeners))
	for _, ref := range jobDef.Listeners {
		builder, ok := f.jobListenerBuilders[ref.Ref]
		if !ok {
			return nil, exception.NewBatchErrorf("job_factory", "JobExecutionListener '%s' のビルダーが登録されていません", ref.Ref)
		}
		l, err := builder(f.config)
		if err != nil {
			return nil, exception.NewBatchError("job_factory", fmt.Sprintf("JobExecutionListener '%s' の生成に失敗しました", ref.Ref), err, false, false)
		}
		jobListeners = append(jobListeners, l)
	}

	steps := make([]core.Step, 0, len(jobDef.Steps))
	for _, stepDef := range jobDef.Steps {
		s, err := f.buildStep(stepDef)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}

	logger.Debugf("JobFactory: ジョブ '%s' を生成しました (ステップ数: %d)。", jobDef.ID, len(steps))
	return job.NewSimpleJob(jobDef.ID, steps, jobListeners, f.jobRepository), nil
}

func (f *JobFactory) buildStep(stepDef jsl.Step) (core.Step, error) {
	builder, ok := f.taskletBuilders[stepDef.Tasklet.Ref]
	if !ok {
		return nil, exception.NewBatchErrorf("job_factory", "ステップ '%s': Tasklet '%s' のビルダーが登録されていません", stepDef.ID, stepDef.Tasklet.Ref)
	}
	tasklet, err := builder(f.config, f.jobRepository, stepDef.Tasklet.Properties)
	if err != nil {
		return nil, exception.NewBatchError("job_factory", fmt.Sprintf("ステップ '%s': Tasklet '%s' の生成に失敗しました", stepDef.ID, stepDef.Tasklet.Ref), err, false, false)
	}

	var listeners []core.StepExecutionListener
	// ライフサイクルを持つ Tasklet は最初に通知を受ける
	if l, ok := tasklet.(core.StepExecutionListener); ok {
		listeners = append(listeners, l)
	}
	for _, ref := range stepDef.Listeners {
		lb, ok := f.stepListenerBuilders[ref.Ref]
		if !ok {
			return nil, exception.NewBatchErrorf("job_factory", "ステップ '%s': StepExecutionListener '%s' のビルダーが登録されていません", stepDef.ID, ref.Ref)
		}
		l, err := lb(f.config)
		if err != nil {
			return nil, exception.NewBatchError("job_factory", fmt.Sprintf("ステップ '%s': StepExecutionListener '%s' の生成に失敗しました", stepDef.ID, ref.Ref), err, false, false)
		}
		listeners = append(listeners, l)
	}

	return step.NewTaskletStep(stepDef.ID, tasklet, f.jobRepository, listeners), nil
}
