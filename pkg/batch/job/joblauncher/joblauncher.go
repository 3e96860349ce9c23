package joblauncher

import (
	"context"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
)

// JobLauncher は Job を JobParameters とともに起動するためのインターフェースです。
type JobLauncher interface {
	// Launch は指定された Job を JobParameters とともに起動し、JobExecution を返します。
	// 起動処理に失敗した場合とジョブ自体が失敗した場合の両方でエラーを返します。
	Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error)
}
