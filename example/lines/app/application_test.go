package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/database/connector"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
)

const testConfig = `
database:
  type: memory
system:
  timezone: UTC
  logging:
    level: WARN
`

func testJSL(id string) []byte {
	return []byte(fmt.Sprintf(`
id: %s
name: %s
listeners:
  - ref: loggingJobListener
steps:
  - id: seedLines
    tasklet:
      ref: contextSeedTasklet
      properties:
        path: "${LINES_INPUT_PATH}"
  - id: processLines
    tasklet:
      ref: linesProcessor
      properties:
        errorPolicy: "${LINES_ERROR_POLICY}"
    listeners:
      - ref: loggingStepListener
  - id: dumpLines
    tasklet:
      ref: contextDumpTasklet
      properties:
        path: "${LINES_OUTPUT_PATH}"
`, id, id))
}

func writeInput(t *testing.T, content string) (in, out string) {
	t.Helper()
	dir := t.TempDir()
	in = filepath.Join(dir, "lines.json")
	out = filepath.Join(dir, "lines_out.json")
	require.NoError(t, os.WriteFile(in, []byte(content), 0o644))
	t.Setenv("LINES_INPUT_PATH", in)
	t.Setenv("LINES_OUTPUT_PATH", out)
	return in, out
}

func TestRunApplication_Completed(t *testing.T) {
	_, out := writeInput(t, `[{"dob":"1990-01-01","name":"Alice"}]`)
	t.Setenv("BATCH_JOB_NAME", "appCompletedJob")
	t.Setenv("LINES_ERROR_POLICY", "strict")

	code := RunApplication(context.Background(), "", []byte(testConfig), testJSL("appCompletedJob"))
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Regexp(t, `^\[\{"dob":"1990-01-01","name":"Alice","age":\d+\}\]$`, string(data))
}

func TestRunApplication_StrictMalformedFails(t *testing.T) {
	_, out := writeInput(t, `not json`)
	t.Setenv("BATCH_JOB_NAME", "appStrictJob")
	t.Setenv("LINES_ERROR_POLICY", "strict")

	code := RunApplication(context.Background(), "", []byte(testConfig), testJSL("appStrictJob"))
	assert.Equal(t, 1, code)

	// 後続の dump ステップは実行されない
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRunApplication_LenientMalformedWritesEmptyList(t *testing.T) {
	_, out := writeInput(t, `not json`)
	t.Setenv("BATCH_JOB_NAME", "appLenientJob")
	t.Setenv("LINES_ERROR_POLICY", "lenient")

	code := RunApplication(context.Background(), "", []byte(testConfig), testJSL("appLenientJob"))
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRunApplication_SQLiteRepository(t *testing.T) {
	writeInput(t, `[{"dob":"2000-05-10"}]`)
	dbPath := filepath.Join(t.TempDir(), "batch.db")
	envFile := filepath.Join(t.TempDir(), ".env")
	// .env の値は未設定の環境変数にのみ適用される
	require.NoError(t, os.WriteFile(envFile, []byte("DATABASE_TYPE=sqlite\nDATABASE_AUTO_MIGRATE=true\n"), 0o644))
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("BATCH_JOB_NAME", "appSQLiteJob")
	t.Setenv("LINES_ERROR_POLICY", "")
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_TYPE")
		os.Unsetenv("DATABASE_AUTO_MIGRATE")
	})

	code := RunApplication(context.Background(), envFile, []byte(testConfig), testJSL("appSQLiteJob"))
	require.Equal(t, 0, code)

	ctx := context.Background()
	conn, err := connector.NewDBConnectionFromConfig(ctx, config.DatabaseConfig{Type: "sqlite", Path: dbPath})
	require.NoError(t, err)
	defer conn.Close()

	var status, ec string
	require.NoError(t, conn.QueryRowContext(ctx,
		"SELECT status, execution_context FROM job_executions WHERE job_name = ?", "appSQLiteJob").Scan(&status, &ec))
	assert.Equal(t, string(core.BatchStatusCompleted), status)
	assert.Contains(t, ec, `\"age\":`)

	var steps int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM step_executions").Scan(&steps))
	assert.Equal(t, 3, steps)
}

func TestRunApplication_InlineValueKeepsDollarSign(t *testing.T) {
	out := filepath.Join(t.TempDir(), "lines_out.json")
	t.Setenv("LINES_OUTPUT_PATH", out)
	t.Setenv("BATCH_JOB_NAME", "appDollarJob")
	jsl := []byte(`
id: appDollarJob
name: appDollarJob
steps:
  - id: seedLines
    tasklet:
      ref: contextSeedTasklet
      properties:
        value: '[{"dob":"2000-05-10","price":"$5","note":"a$b","env":"$HOME"}]'
  - id: processLines
    tasklet:
      ref: linesProcessor
  - id: dumpLines
    tasklet:
      ref: contextDumpTasklet
      properties:
        path: "${LINES_OUTPUT_PATH}"
`)

	code := RunApplication(context.Background(), "", []byte(testConfig), jsl)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Regexp(t, `^\[\{"dob":"2000-05-10","price":"\$5","note":"a\$b","env":"\$HOME","age":\d+\}\]$`, string(data))
}

func TestExpandJSL(t *testing.T) {
	t.Setenv("LINES_TEST_VAR", "/tmp/in.json")

	got := expandJSL([]byte(`path: "${LINES_TEST_VAR}" value: '$5 a$b $LINES_TEST_VAR ${1X}'`))
	assert.Equal(t, `path: "/tmp/in.json" value: '$5 a$b $LINES_TEST_VAR ${1X}'`, string(got))
}

func TestRunApplication_InitializationFailure(t *testing.T) {
	code := RunApplication(context.Background(), "", []byte("database: ["), testJSL("appInitFailJob"))
	assert.Equal(t, 1, code)
}

func TestHandleApplicationError(t *testing.T) {
	assert.Equal(t, 1, handleApplicationError(fmt.Errorf("boom"), nil, "x"))

	je := core.NewJobExecution("x", core.NewJobParameters())
	je.MarkAsCompleted()
	assert.Equal(t, 0, handleApplicationError(nil, je, "x"))

	je.MarkAsFailed(fmt.Errorf("boom"))
	assert.Equal(t, 1, handleApplicationError(nil, je, "x"))
}
