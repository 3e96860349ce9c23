package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobStatus はジョブ/ステップ実行の状態を表します。
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusStopping  JobStatus = "STOPPING"
	BatchStatusStopped   JobStatus = "STOPPED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// IsFinished は JobStatus が終了状態かどうかを判定するヘルパーメソッドです。
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ExitStatus はジョブ/ステップの終了時の詳細なステータスを表します。
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// RepeatStatus は Tasklet.Execute がホストに返す継続指示です。
type RepeatStatus string

const (
	// RepeatStatusContinue は Tasklet をもう一度呼び出すことを要求します。
	RepeatStatusContinue RepeatStatus = "CONTINUABLE"
	// RepeatStatusFinished は Tasklet の処理が完了したことを示します。
	RepeatStatusFinished RepeatStatus = "FINISHED"
)

// JobParameters はジョブ実行時のパラメータを保持する構造体です。
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters は新しい JobParameters のインスタンスを作成します。
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put はパラメータを設定します。
func (p JobParameters) Put(key string, value interface{}) {
	p.Params[key] = value
}

// GetString は指定されたキーのパラメータを文字列として取得します。
func (p JobParameters) GetString(key string) (string, bool) {
	v, ok := p.Params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// JobExecution はジョブの単一の実行インスタンスを表す構造体です。
type JobExecution struct {
	ID               string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         []error
	Version          int
	CreateTime       time.Time
	LastUpdated      time.Time
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext // ジョブレベルの共有コンテキスト
	CurrentStepName  string
	CancelFunc       context.CancelFunc
}

// NewJobExecution は新しい JobExecution のインスタンスを作成します。
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               uuid.New().String(),
		JobName:          jobName,
		Parameters:       params,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		Failures:         make([]error, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

// MarkAsStarted は JobExecution の状態を実行中に更新します。
func (je *JobExecution) MarkAsStarted() {
	now := time.Now()
	je.Status = BatchStatusStarted
	je.StartTime = now
	je.LastUpdated = now
}

// MarkAsCompleted は JobExecution の状態を完了に更新します。
func (je *JobExecution) MarkAsCompleted() {
	now := time.Now()
	je.Status = BatchStatusCompleted
	je.ExitStatus = ExitStatusCompleted
	je.EndTime = now
	je.LastUpdated = now
}

// MarkAsFailed は JobExecution の状態を失敗に更新し、エラー情報を追加します。
func (je *JobExecution) MarkAsFailed(err error) {
	now := time.Now()
	je.Status = BatchStatusFailed
	je.ExitStatus = ExitStatusFailed
	je.EndTime = now
	je.LastUpdated = now
	je.AddFailureException(err)
}

// MarkAsStopped は JobExecution の状態を停止に更新します。
func (je *JobExecution) MarkAsStopped() {
	now := time.Now()
	je.Status = BatchStatusStopped
	je.ExitStatus = ExitStatusStopped
	je.EndTime = now
	je.LastUpdated = now
}

// AddFailureException は JobExecution にエラー情報を追加します。
func (je *JobExecution) AddFailureException(err error) {
	if err != nil {
		je.Failures = append(je.Failures, err)
		je.LastUpdated = time.Now()
	}
}

// StepExecution はステップの単一の実行インスタンスを表す構造体です。
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution // 所属するジョブ実行への参照
	StartTime        time.Time
	EndTime          time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         []error
	ReadCount        int
	WriteCount       int
	CommitCount      int
	RollbackCount    int
	ExecutionContext ExecutionContext // ステップレベルのコンテキスト
	LastUpdated      time.Time
	Version          int
}

// NewStepExecution は新しい StepExecution を作成し、JobExecution に追加します。
func NewStepExecution(stepName string, jobExecution *JobExecution) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		ID:               uuid.New().String(),
		StepName:         stepName,
		JobExecution:     jobExecution,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make([]error, 0),
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      now,
	}
	if jobExecution != nil {
		jobExecution.StepExecutions = append(jobExecution.StepExecutions, se)
		jobExecution.CurrentStepName = stepName
	}
	return se
}

// MarkAsStarted は StepExecution の状態を実行中に更新します。
func (se *StepExecution) MarkAsStarted() {
	now := time.Now()
	se.Status = BatchStatusStarted
	se.StartTime = now
	se.LastUpdated = now
}

// MarkAsCompleted は StepExecution の状態を完了に更新します。
func (se *StepExecution) MarkAsCompleted() {
	now := time.Now()
	se.Status = BatchStatusCompleted
	se.ExitStatus = ExitStatusCompleted
	se.EndTime = now
	se.LastUpdated = now
}

// MarkAsFailed は StepExecution の状態を失敗に更新し、エラー情報を追加します。
func (se *StepExecution) MarkAsFailed(err error) {
	now := time.Now()
	se.Status = BatchStatusFailed
	se.ExitStatus = ExitStatusFailed
	se.EndTime = now
	se.LastUpdated = now
	se.AddFailureException(err)
}

// MarkAsStopped は StepExecution の状態を停止に更新します。
func (se *StepExecution) MarkAsStopped() {
	now := time.Now()
	se.Status = BatchStatusStopped
	se.ExitStatus = ExitStatusStopped
	se.EndTime = now
	se.LastUpdated = now
}

// AddFailureException は StepExecution にエラー情報を追加します。
func (se *StepExecution) AddFailureException(err error) {
	if err != nil {
		se.Failures = append(se.Failures, err)
		se.LastUpdated = time.Now()
	}
}
