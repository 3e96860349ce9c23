package core

import "context"

// Job は実行可能なバッチジョブのインターフェースです。
type Job interface {
	Run(ctx context.Context, jobExecution *JobExecution) error
	JobName() string
}

// Step はジョブ内で実行される単一のステップのインターフェースです。
type Step interface {
	// Execute はステップの処理を実行します。
	// StepExecution のライフサイクル管理（開始/終了マーク、リスナー通知など）はこのメソッドの実装内で行われます。
	Execute(ctx context.Context, jobExecution *JobExecution, stepExecution *StepExecution) error
	StepName() string
}

// Tasklet は単一の操作を実行するステップのインターフェースです。
type Tasklet interface {
	// Execute は Tasklet のビジネスロジックを実行します。
	// RepeatStatusContinue を返すと、ホストは同じ Tasklet を再度呼び出します。
	Execute(ctx context.Context, stepExecution *StepExecution) (RepeatStatus, error)
	// Close はリソースを解放するためのメソッドです。
	Close(ctx context.Context) error
}

// StepExecutionListener はステップ実行イベントを処理するためのインターフェースです。
// AfterStep でステップを失敗として扱いたい場合は stepExecution.MarkAsFailed を呼び出します。
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *StepExecution)
	AfterStep(ctx context.Context, stepExecution *StepExecution)
}

// JobExecutionListener はジョブ実行イベントを処理するためのインターフェースです。
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *JobExecution)
	AfterJob(ctx context.Context, jobExecution *JobExecution)
}
