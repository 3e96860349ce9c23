package repository

import (
	"context"
	"fmt"
	"sync"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// InMemoryJobRepository は JobRepository のインメモリ実装です。
// 保存時にスナップショットを取るため、呼び出し側が後から JobExecution を変更しても保存内容には影響しません。
type InMemoryJobRepository struct {
	mu             sync.RWMutex
	jobExecutions  map[string]*core.JobExecution
	stepExecutions map[string]*core.StepExecution
	stepOrder      map[string][]string // JobExecution ID -> StepExecution ID の保存順
}

// NewInMemoryJobRepository は新しい InMemoryJobRepository を作成します。
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]*core.JobExecution),
		stepExecutions: make(map[string]*core.StepExecution),
		stepOrder:      make(map[string][]string),
	}
}

func snapshotJobExecution(je *core.JobExecution) *core.JobExecution {
	dup := *je
	dup.ExecutionContext = je.ExecutionContext.Copy()
	dup.Failures = append([]error(nil), je.Failures...)
	dup.StepExecutions = nil
	dup.CancelFunc = nil
	return &dup
}

func snapshotStepExecution(se *core.StepExecution) *core.StepExecution {
	dup := *se
	dup.ExecutionContext = se.ExecutionContext.Copy()
	dup.Failures = append([]error(nil), se.Failures...)
	dup.JobExecution = nil
	return &dup
}

func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) は既に保存されています", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJobExecution(jobExecution)
	logger.Debugf("JobExecution (ID: %s) をインメモリに保存しました。", jobExecution.ID)
	return nil
}

func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.jobExecutions[jobExecution.ID]
	if !exists {
		return exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) の更新対象が見つかりませんでした", jobExecution.ID), ErrNotFound, false, false)
	}
	if stored.Version != jobExecution.Version {
		return exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) のバージョンが一致しません (保存: %d, 更新: %d)", jobExecution.ID, stored.Version, jobExecution.Version)
	}
	jobExecution.Version++
	r.jobExecutions[jobExecution.ID] = snapshotJobExecution(jobExecution)
	return nil
}

func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) が見つかりません", executionID), ErrNotFound, false, false)
	}
	je := snapshotJobExecution(stored)
	for _, id := range r.stepOrder[executionID] {
		se := snapshotStepExecution(r.stepExecutions[id])
		se.JobExecution = je
		je.StepExecutions = append(je.StepExecutions, se)
	}
	return je, nil
}

func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	if stepExecution.JobExecution == nil {
		return exception.NewBatchErrorf("job_repository", "StepExecution (ID: %s) が JobExecution に紐づいていません", stepExecution.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jobExecutionID := stepExecution.JobExecution.ID
	if _, ok := r.jobExecutions[jobExecutionID]; !ok {
		return exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) が見つかりません", jobExecutionID), ErrNotFound, false, false)
	}
	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return exception.NewBatchErrorf("job_repository", "StepExecution (ID: %s) は既に保存されています", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = snapshotStepExecution(stepExecution)
	r.stepOrder[jobExecutionID] = append(r.stepOrder[jobExecutionID], stepExecution.ID)
	return nil
}

func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stepExecutions[stepExecution.ID]; !exists {
		return exception.NewBatchError("job_repository", fmt.Sprintf("StepExecution (ID: %s) の更新対象が見つかりませんでした", stepExecution.ID), ErrNotFound, false, false)
	}
	stepExecution.Version++
	r.stepExecutions[stepExecution.ID] = snapshotStepExecution(stepExecution)
	return nil
}

func (r *InMemoryJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.stepOrder[jobExecutionID]
	result := make([]*core.StepExecution, 0, len(ids))
	for _, id := range ids {
		result = append(result, snapshotStepExecution(r.stepExecutions[id]))
	}
	return result, nil
}

func (r *InMemoryJobRepository) Close() error {
	return nil
}

var _ JobRepository = (*InMemoryJobRepository)(nil)
