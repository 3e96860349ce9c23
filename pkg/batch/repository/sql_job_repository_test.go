package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/database"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
)

func newMockRepository(t *testing.T) (*SQLJobRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLJobRepository(database.NewSQLDBAdapter(db, "postgres")), mock
}

func TestSQLJobRepository_SaveJobExecution(t *testing.T) {
	repo, mock := newMockRepository(t)
	je := core.NewJobExecution("linesJob", core.NewJobParameters())
	je.ExecutionContext.Put("lines", "[]")

	// postgres では '?' が $n に書き換えられる
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)")).
		WithArgs(je.ID, "linesJob", "{}", sqlmock.AnyArg(), sqlmock.AnyArg(), "STARTING", "UNKNOWN",
			"[]", `{"lines":"[]"}`, "", sqlmock.AnyArg(), sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLJobRepository_UpdateJobExecution(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		wantErr     bool
		wantVersion int
	}{
		{name: "更新成功でバージョンが進む", affected: 1, wantVersion: 1},
		{name: "バージョン不一致", affected: 0, wantErr: true, wantVersion: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			je := core.NewJobExecution("linesJob", core.NewJobParameters())

			mock.ExpectExec(regexp.QuoteMeta("UPDATE job_executions SET")).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.UpdateJobExecution(context.Background(), je)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNotFound))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantVersion, je.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLJobRepository_FindJobExecutionByID_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM job_executions WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindJobExecutionByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLJobRepository_SaveStepExecution_DBError(t *testing.T) {
	repo, mock := newMockRepository(t)
	je := core.NewJobExecution("linesJob", core.NewJobParameters())
	se := core.NewStepExecution("processLines", je)

	dbErr := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO step_executions")).WillReturnError(dbErr)

	err := repo.SaveStepExecution(context.Background(), se)
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLJobRepository_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Type:        "sqlite",
		Path:        filepath.Join(t.TempDir(), "batch.db"),
		AutoMigrate: true,
	}
	repo, err := NewJobRepository(ctx, cfg)
	require.NoError(t, err)
	defer repo.Close()
	require.IsType(t, &SQLJobRepository{}, repo)

	params := core.NewJobParameters()
	params.Put("run", "1")
	je := core.NewJobExecution("linesJob", params)
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	je.MarkAsStarted()
	se := core.NewStepExecution("processLines", je)
	se.MarkAsStarted()
	require.NoError(t, repo.SaveStepExecution(ctx, se))

	je.ExecutionContext.Put("lines", `[{"dob":"2000-05-10","name":"Alice","age":24}]`)
	se.ReadCount, se.WriteCount = 1, 1
	se.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, se))
	je.MarkAsFailed(errors.New("後続ステップで失敗"))
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	found, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, "linesJob", found.JobName)
	assert.Equal(t, core.BatchStatusFailed, found.Status)
	assert.Equal(t, 1, found.Version)
	assert.WithinDuration(t, je.StartTime, found.StartTime, time.Second)
	v, _ := found.Parameters.GetString("run")
	assert.Equal(t, "1", v)
	lines, ok := found.ExecutionContext.GetString("lines")
	require.True(t, ok)
	assert.Equal(t, `[{"dob":"2000-05-10","name":"Alice","age":24}]`, lines)
	require.Len(t, found.Failures, 1)
	assert.Contains(t, found.Failures[0].Error(), "後続ステップで失敗")

	require.Len(t, found.StepExecutions, 1)
	step := found.StepExecutions[0]
	assert.Equal(t, "processLines", step.StepName)
	assert.Equal(t, core.BatchStatusCompleted, step.Status)
	assert.Equal(t, 1, step.WriteCount)
	assert.Equal(t, 1, step.Version)
}

func TestNewJobRepository_Memory(t *testing.T) {
	repo, err := NewJobRepository(context.Background(), config.DatabaseConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryJobRepository{}, repo)
}

func TestNewJobRepository_UnsupportedType(t *testing.T) {
	_, err := NewJobRepository(context.Background(), config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}
