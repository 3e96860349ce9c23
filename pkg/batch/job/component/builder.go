package component

import (
	"github.com/tigerroll/lines_batch/pkg/batch/config"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
)

// TaskletBuilder は JSL の tasklet 参照から Tasklet を生成するための関数型です。
// properties には JSL の properties がそのまま渡されます。
// 生成された Tasklet が core.StepExecutionListener も実装している場合、ステップのリスナーとしても登録されます。
type TaskletBuilder func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (core.Tasklet, error)

// StepExecutionListenerBuilder は StepExecutionListener を生成するための関数型です。
type StepExecutionListenerBuilder func(cfg *config.Config) (core.StepExecutionListener, error)

// JobListenerBuilder は JobExecutionListener を生成するための関数型です。
type JobListenerBuilder func(cfg *config.Config) (core.JobExecutionListener, error)
