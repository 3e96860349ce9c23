package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tigerroll/lines_batch/pkg/batch/database"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
	"github.com/tigerroll/lines_batch/pkg/batch/util/serialization"
)

const (
	insertJobExecutionQuery = `
		INSERT INTO job_executions (
			id, job_name, job_parameters, start_time, end_time, status, exit_status,
			failure_exceptions, execution_context, current_step_name, create_time, last_updated, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateJobExecutionQuery = `
		UPDATE job_executions SET
			start_time = ?, end_time = ?, status = ?, exit_status = ?, failure_exceptions = ?,
			execution_context = ?, current_step_name = ?, last_updated = ?, version = ?
		WHERE id = ? AND version = ?`

	selectJobExecutionQuery = `
		SELECT id, job_name, job_parameters, start_time, end_time, status, exit_status,
			failure_exceptions, execution_context, current_step_name, create_time, last_updated, version
		FROM job_executions WHERE id = ?`

	insertStepExecutionQuery = `
		INSERT INTO step_executions (
			id, job_execution_id, step_name, start_time, end_time, status, exit_status,
			read_count, write_count, commit_count, rollback_count,
			failure_exceptions, execution_context, last_updated, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateStepExecutionQuery = `
		UPDATE step_executions SET
			start_time = ?, end_time = ?, status = ?, exit_status = ?,
			read_count = ?, write_count = ?, commit_count = ?, rollback_count = ?,
			failure_exceptions = ?, execution_context = ?, last_updated = ?, version = ?
		WHERE id = ?`

	selectStepExecutionsQuery = `
		SELECT id, step_name, start_time, end_time, status, exit_status,
			read_count, write_count, commit_count, rollback_count,
			failure_exceptions, execution_context, last_updated, version
		FROM step_executions WHERE job_execution_id = ? ORDER BY start_time, last_updated`
)

// SQLJobRepository は database.DBConnection を使用した JobRepository の実装です。
// クエリは '?' プレースホルダで記述され、接続のデータベースタイプに合わせて書き換えられます。
type SQLJobRepository struct {
	db database.DBConnection
}

// NewSQLJobRepository は新しい SQLJobRepository のインスタンスを作成します。
func NewSQLJobRepository(db database.DBConnection) *SQLJobRepository {
	return &SQLJobRepository{db: db}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	paramsJSON, err := serialization.MarshalJobParameters(jobExecution.Parameters)
	if err != nil {
		return exception.NewBatchError("job_repository", "JobParameters のシリアライズに失敗しました", err, false, false)
	}
	failuresJSON, err := serialization.MarshalFailures(jobExecution.Failures)
	if err != nil {
		return exception.NewBatchError("job_repository", "失敗例外のシリアライズに失敗しました", err, false, false)
	}
	contextJSON, err := serialization.MarshalExecutionContext(jobExecution.ExecutionContext)
	if err != nil {
		return exception.NewBatchError("job_repository", "ExecutionContext のシリアライズに失敗しました", err, false, false)
	}

	_, err = r.db.ExecContext(ctx, insertJobExecutionQuery,
		jobExecution.ID,
		jobExecution.JobName,
		string(paramsJSON),
		nullTime(jobExecution.StartTime),
		nullTime(jobExecution.EndTime),
		string(jobExecution.Status),
		string(jobExecution.ExitStatus),
		string(failuresJSON),
		string(contextJSON),
		jobExecution.CurrentStepName,
		jobExecution.CreateTime.UTC(),
		jobExecution.LastUpdated.UTC(),
		jobExecution.Version,
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) の保存に失敗しました", jobExecution.ID), err, true, false)
	}
	logger.Debugf("JobExecution (ID: %s) を保存しました。", jobExecution.ID)
	return nil
}

// UpdateJobExecution は楽観的ロックで JobExecution を更新します。
// 成功すると jobExecution.Version が 1 つ進みます。
func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	failuresJSON, err := serialization.MarshalFailures(jobExecution.Failures)
	if err != nil {
		return exception.NewBatchError("job_repository", "失敗例外のシリアライズに失敗しました", err, false, false)
	}
	contextJSON, err := serialization.MarshalExecutionContext(jobExecution.ExecutionContext)
	if err != nil {
		return exception.NewBatchError("job_repository", "ExecutionContext のシリアライズに失敗しました", err, false, false)
	}

	nextVersion := jobExecution.Version + 1
	res, err := r.db.ExecContext(ctx, updateJobExecutionQuery,
		nullTime(jobExecution.StartTime),
		nullTime(jobExecution.EndTime),
		string(jobExecution.Status),
		string(jobExecution.ExitStatus),
		string(failuresJSON),
		string(contextJSON),
		jobExecution.CurrentStepName,
		jobExecution.LastUpdated.UTC(),
		nextVersion,
		jobExecution.ID,
		jobExecution.Version,
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) の更新に失敗しました", jobExecution.ID), err, true, false)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return exception.NewBatchError("job_repository", "更新件数の取得に失敗しました", err, false, false)
	}
	if rowsAffected == 0 {
		return exception.NewBatchError("job_repository",
			fmt.Sprintf("JobExecution (ID: %s, Version: %d) の更新対象が見つかりませんでした", jobExecution.ID, jobExecution.Version),
			ErrNotFound, false, false)
	}
	jobExecution.Version = nextVersion
	logger.Debugf("JobExecution (ID: %s) を更新しました。Status: %s", jobExecution.ID, jobExecution.Status)
	return nil
}

func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	var (
		je                                    core.JobExecution
		paramsJSON, failuresJSON, contextJSON string
		status, exitStatus                    string
		startTime, endTime                    sql.NullTime
	)
	row := r.db.QueryRowContext(ctx, selectJobExecutionQuery, executionID)
	err := row.Scan(
		&je.ID, &je.JobName, &paramsJSON, &startTime, &endTime, &status, &exitStatus,
		&failuresJSON, &contextJSON, &je.CurrentStepName, &je.CreateTime, &je.LastUpdated, &je.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) が見つかりません", executionID), ErrNotFound, false, false)
		}
		return nil, exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) の取得に失敗しました", executionID), err, true, false)
	}
	je.Status = core.JobStatus(status)
	je.ExitStatus = core.ExitStatus(exitStatus)
	if startTime.Valid {
		je.StartTime = startTime.Time
	}
	if endTime.Valid {
		je.EndTime = endTime.Time
	}
	if je.Parameters, err = serialization.UnmarshalJobParameters([]byte(paramsJSON)); err != nil {
		return nil, err
	}
	if je.Failures, err = serialization.UnmarshalFailures([]byte(failuresJSON)); err != nil {
		return nil, err
	}
	if je.ExecutionContext, err = serialization.UnmarshalExecutionContext([]byte(contextJSON)); err != nil {
		return nil, err
	}

	steps, err := r.FindStepExecutionsByJobExecutionID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	for _, se := range steps {
		se.JobExecution = &je
	}
	je.StepExecutions = steps
	return &je, nil
}

func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	if stepExecution.JobExecution == nil {
		return exception.NewBatchErrorf("job_repository", "StepExecution (ID: %s) が JobExecution に紐づいていません", stepExecution.ID)
	}
	failuresJSON, err := serialization.MarshalFailures(stepExecution.Failures)
	if err != nil {
		return exception.NewBatchError("job_repository", "失敗例外のシリアライズに失敗しました", err, false, false)
	}
	contextJSON, err := serialization.MarshalExecutionContext(stepExecution.ExecutionContext)
	if err != nil {
		return exception.NewBatchError("job_repository", "ExecutionContext のシリアライズに失敗しました", err, false, false)
	}

	_, err = r.db.ExecContext(ctx, insertStepExecutionQuery,
		stepExecution.ID,
		stepExecution.JobExecution.ID,
		stepExecution.StepName,
		nullTime(stepExecution.StartTime),
		nullTime(stepExecution.EndTime),
		string(stepExecution.Status),
		string(stepExecution.ExitStatus),
		stepExecution.ReadCount,
		stepExecution.WriteCount,
		stepExecution.CommitCount,
		stepExecution.RollbackCount,
		string(failuresJSON),
		string(contextJSON),
		stepExecution.LastUpdated.UTC(),
		stepExecution.Version,
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("StepExecution (ID: %s) の保存に失敗しました", stepExecution.ID), err, true, false)
	}
	logger.Debugf("StepExecution (ID: %s, Step: %s) を保存しました。", stepExecution.ID, stepExecution.StepName)
	return nil
}

func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	failuresJSON, err := serialization.MarshalFailures(stepExecution.Failures)
	if err != nil {
		return exception.NewBatchError("job_repository", "失敗例外のシリアライズに失敗しました", err, false, false)
	}
	contextJSON, err := serialization.MarshalExecutionContext(stepExecution.ExecutionContext)
	if err != nil {
		return exception.NewBatchError("job_repository", "ExecutionContext のシリアライズに失敗しました", err, false, false)
	}

	nextVersion := stepExecution.Version + 1
	res, err := r.db.ExecContext(ctx, updateStepExecutionQuery,
		nullTime(stepExecution.StartTime),
		nullTime(stepExecution.EndTime),
		string(stepExecution.Status),
		string(stepExecution.ExitStatus),
		stepExecution.ReadCount,
		stepExecution.WriteCount,
		stepExecution.CommitCount,
		stepExecution.RollbackCount,
		string(failuresJSON),
		string(contextJSON),
		stepExecution.LastUpdated.UTC(),
		nextVersion,
		stepExecution.ID,
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("StepExecution (ID: %s) の更新に失敗しました", stepExecution.ID), err, true, false)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return exception.NewBatchError("job_repository", "更新件数の取得に失敗しました", err, false, false)
	}
	if rowsAffected == 0 {
		return exception.NewBatchError("job_repository", fmt.Sprintf("StepExecution (ID: %s) の更新対象が見つかりませんでした", stepExecution.ID), ErrNotFound, false, false)
	}
	stepExecution.Version = nextVersion
	return nil
}

func (r *SQLJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error) {
	rows, err := r.db.QueryContext(ctx, selectStepExecutionsQuery, jobExecutionID)
	if err != nil {
		return nil, exception.NewBatchError("job_repository", fmt.Sprintf("JobExecution (ID: %s) の StepExecution 取得に失敗しました", jobExecutionID), err, true, false)
	}
	defer rows.Close()

	var result []*core.StepExecution
	for rows.Next() {
		var (
			se                        core.StepExecution
			status, exitStatus        string
			failuresJSON, contextJSON string
			startTime, endTime        sql.NullTime
		)
		if err := rows.Scan(
			&se.ID, &se.StepName, &startTime, &endTime, &status, &exitStatus,
			&se.ReadCount, &se.WriteCount, &se.CommitCount, &se.RollbackCount,
			&failuresJSON, &contextJSON, &se.LastUpdated, &se.Version,
		); err != nil {
			return nil, exception.NewBatchError("job_repository", "StepExecution のスキャンに失敗しました", err, false, false)
		}
		se.Status = core.JobStatus(status)
		se.ExitStatus = core.ExitStatus(exitStatus)
		if startTime.Valid {
			se.StartTime = startTime.Time
		}
		if endTime.Valid {
			se.EndTime = endTime.Time
		}
		if se.Failures, err = serialization.UnmarshalFailures([]byte(failuresJSON)); err != nil {
			return nil, err
		}
		if se.ExecutionContext, err = serialization.UnmarshalExecutionContext([]byte(contextJSON)); err != nil {
			return nil, err
		}
		result = append(result, &se)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError("job_repository", "StepExecution の読み取り中にエラーが発生しました", err, false, false)
	}
	return result, nil
}

// Close はデータベース接続を閉じます。
func (r *SQLJobRepository) Close() error {
	return r.db.Close()
}

var _ JobRepository = (*SQLJobRepository)(nil)
