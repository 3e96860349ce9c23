package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/job"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/job/jsl"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
)

// lifecycleTasklet は Tasklet と StepExecutionListener の両方を実装します。
type lifecycleTasklet struct {
	events     *[]string
	properties map[string]string
}

func (t *lifecycleTasklet) Execute(ctx context.Context, se *core.StepExecution) (core.RepeatStatus, error) {
	*t.events = append(*t.events, "execute:"+t.properties["name"])
	return core.RepeatStatusFinished, nil
}
func (t *lifecycleTasklet) Close(ctx context.Context) error { return nil }
func (t *lifecycleTasklet) BeforeStep(ctx context.Context, se *core.StepExecution) {
	*t.events = append(*t.events, "before")
}
func (t *lifecycleTasklet) AfterStep(ctx context.Context, se *core.StepExecution) {
	*t.events = append(*t.events, "after")
}

type nopStepListener struct{ events *[]string }

func (l *nopStepListener) BeforeStep(ctx context.Context, se *core.StepExecution) {
	*l.events = append(*l.events, "listener.before")
}
func (l *nopStepListener) AfterStep(ctx context.Context, se *core.StepExecution) {
	*l.events = append(*l.events, "listener.after")
}

func newFactory(events *[]string) (*JobFactory, repository.JobRepository) {
	repo := repository.NewInMemoryJobRepository()
	f := NewJobFactory(config.NewConfig(), repo)
	f.RegisterTaskletBuilder("lifecycle", func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (core.Tasklet, error) {
		return &lifecycleTasklet{events: events, properties: properties}, nil
	})
	f.RegisterTaskletBuilder("broken", func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (core.Tasklet, error) {
		return nil, errors.New("invalid property")
	})
	f.RegisterStepExecutionListenerBuilder("nop", func(cfg *config.Config) (core.StepExecutionListener, error) {
		return &nopStepListener{events: events}, nil
	})
	return f, repo
}

func TestJobFactory_CreateJobFromDefinition(t *testing.T) {
	var events []string
	f, repo := newFactory(&events)

	def := jsl.Job{
		ID:   "factoryJob",
		Name: "Factory Job",
		Steps: []jsl.Step{{
			ID:        "only",
			Tasklet:   jsl.ComponentRef{Ref: "lifecycle", Properties: map[string]string{"name": "only"}},
			Listeners: []jsl.ComponentRef{{Ref: "nop"}},
		}},
	}
	created, err := f.CreateJobFromDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, "factoryJob", created.JobName())
	require.IsType(t, &job.SimpleJob{}, created)
	require.Len(t, created.(*job.SimpleJob).Steps(), 1)

	ctx := context.Background()
	je := core.NewJobExecution("factoryJob", core.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	require.NoError(t, created.Run(ctx, je))

	// Tasklet 自身のライフサイクルが他のリスナーより先に通知される
	assert.Equal(t, []string{"before", "listener.before", "execute:only", "after", "listener.after"}, events)
}

func TestJobFactory_Errors(t *testing.T) {
	var events []string
	f, _ := newFactory(&events)

	tests := []struct {
		name string
		def  jsl.Job
	}{
		{name: "未登録の Tasklet", def: jsl.Job{ID: "j", Steps: []jsl.Step{{ID: "s", Tasklet: jsl.ComponentRef{Ref: "unknown"}}}}},
		{name: "Tasklet 生成失敗", def: jsl.Job{ID: "j", Steps: []jsl.Step{{ID: "s", Tasklet: jsl.ComponentRef{Ref: "broken"}}}}},
		{name: "未登録のステップリスナー", def: jsl.Job{ID: "j", Steps: []jsl.Step{{ID: "s", Tasklet: jsl.ComponentRef{Ref: "lifecycle"}, Listeners: []jsl.ComponentRef{{Ref: "unknown"}}}}}},
		{name: "未登録のジョブリスナー", def: jsl.Job{ID: "j", Listeners: []jsl.ComponentRef{{Ref: "unknown"}}, Steps: []jsl.Step{{ID: "s", Tasklet: jsl.ComponentRef{Ref: "lifecycle"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.CreateJobFromDefinition(tt.def)
			assert.Error(t, err)
		})
	}

	_, err := f.CreateJob("notLoadedJob")
	assert.Error(t, err)
}
