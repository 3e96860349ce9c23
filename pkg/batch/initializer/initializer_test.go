package initializer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
)

func TestBatchInitializer_Initialize_Memory(t *testing.T) {
	cfg := &config.Config{EmbeddedConfig: []byte(`
database:
  type: memory
batch:
  job_name: initializerJob
system:
  logging:
    level: DEBUG
`)}
	bi := NewBatchInitializer(cfg)
	bi.JSLDefinitionBytes = []byte("id: initializerJob\nname: Initializer Job\nsteps:\n  - id: s\n    tasklet: {ref: t}\n")

	launcher, jobFactory, err := bi.Initialize(context.Background())
	require.NoError(t, err)
	defer bi.Close()

	assert.NotNil(t, launcher)
	assert.NotNil(t, jobFactory)
	assert.Equal(t, "initializerJob", bi.Config.Batch.JobName)
	assert.IsType(t, &repository.InMemoryJobRepository{}, bi.JobRepository)
	assert.NotEmpty(t, bi.Config.EmbeddedConfig)

	// Tasklet ビルダー未登録のためジョブは生成できない
	_, err = jobFactory.CreateJob("initializerJob")
	assert.Error(t, err)
}

func TestBatchInitializer_Initialize_SQLite(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "batch.db"))
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")

	bi := NewBatchInitializer(&config.Config{EmbeddedConfig: []byte("batch:\n  job_name: x\n")})
	_, _, err := bi.Initialize(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &repository.SQLJobRepository{}, bi.JobRepository)
	assert.NoError(t, bi.Close())
}

func TestBatchInitializer_Initialize_Errors(t *testing.T) {
	bi := NewBatchInitializer(&config.Config{EmbeddedConfig: []byte("database: [")})
	_, _, err := bi.Initialize(context.Background())
	assert.Error(t, err)

	bi = NewBatchInitializer(&config.Config{EmbeddedConfig: []byte("database:\n  type: oracle\n")})
	bi.ConnectRetries = 1
	_, _, err = bi.Initialize(context.Background())
	assert.Error(t, err)
}
