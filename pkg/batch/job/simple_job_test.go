package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
)

// fakeStep はジョブレベルの ExecutionContext に自身の名前を書き込むステップです。
type fakeStep struct {
	name  string
	err   error
	calls int
}

func (s *fakeStep) StepName() string { return s.name }

func (s *fakeStep) Execute(ctx context.Context, je *core.JobExecution, se *core.StepExecution) error {
	s.calls++
	if s.err != nil {
		se.MarkAsFailed(s.err)
		return s.err
	}
	je.ExecutionContext.Put(s.name, "done")
	se.MarkAsCompleted()
	return nil
}

type recordingJobListener struct {
	before, after int
	finalStatus   core.JobStatus
}

func (l *recordingJobListener) BeforeJob(ctx context.Context, je *core.JobExecution) { l.before++ }
func (l *recordingJobListener) AfterJob(ctx context.Context, je *core.JobExecution) {
	l.after++
	l.finalStatus = je.Status
}

func startExecution(t *testing.T, repo repository.JobRepository) *core.JobExecution {
	t.Helper()
	je := core.NewJobExecution("simpleJob", core.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	je.MarkAsStarted()
	return je
}

func TestSimpleJob_Run(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemoryJobRepository()
	first, second := &fakeStep{name: "first"}, &fakeStep{name: "second"}
	l := &recordingJobListener{}

	j := NewSimpleJob("simpleJob", []core.Step{first, second}, []core.JobExecutionListener{l}, repo)
	je := startExecution(t, repo)

	require.NoError(t, j.Run(ctx, je))
	assert.Equal(t, core.BatchStatusCompleted, je.Status)
	assert.Equal(t, 1, l.before)
	assert.Equal(t, 1, l.after)
	assert.Equal(t, core.BatchStatusCompleted, l.finalStatus)
	assert.Len(t, je.StepExecutions, 2)

	// ステップ終了ごとに ExecutionContext が永続化されている
	stored, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	v, ok := stored.ExecutionContext.GetString("second")
	assert.True(t, ok)
	assert.Equal(t, "done", v)
	assert.Len(t, stored.StepExecutions, 2)
}

func TestSimpleJob_StopsAtFirstFailure(t *testing.T) {
	repo := repository.NewInMemoryJobRepository()
	boom := errors.New("boom")
	first, second := &fakeStep{name: "first", err: boom}, &fakeStep{name: "second"}

	j := NewSimpleJob("simpleJob", []core.Step{first, second}, nil, repo)
	je := startExecution(t, repo)

	err := j.Run(context.Background(), je)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, core.BatchStatusFailed, je.Status)
	assert.Equal(t, core.ExitStatusFailed, je.ExitStatus)
	assert.Equal(t, 0, second.calls)
	assert.NotEmpty(t, je.Failures)
}

func TestSimpleJob_Cancelled(t *testing.T) {
	repo := repository.NewInMemoryJobRepository()
	first := &fakeStep{name: "first"}
	j := NewSimpleJob("simpleJob", []core.Step{first}, nil, repo)
	je := startExecution(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := j.Run(ctx, je)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, core.BatchStatusStopped, je.Status)
	assert.Equal(t, 0, first.calls)
}
