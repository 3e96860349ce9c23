package repository

import (
	"context"
	"fmt"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/database"
	"github.com/tigerroll/lines_batch/pkg/batch/database/connector"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// TypeMemory はインメモリリポジトリを選択するデータベースタイプです。
const TypeMemory = "memory"

// NewJobRepository は設定に基づいて JobRepository を作成します。
// database.type が "memory" (または空) の場合はインメモリ実装を返し、
// それ以外はデータベースに接続して SQLJobRepository を返します。
func NewJobRepository(ctx context.Context, cfg config.DatabaseConfig) (JobRepository, error) {
	if cfg.Type == "" || cfg.Type == TypeMemory {
		logger.Infof("インメモリ JobRepository を使用します。")
		return NewInMemoryJobRepository(), nil
	}

	conn, err := connector.NewDBConnectionFromConfig(ctx, cfg)
	if err != nil {
		return nil, exception.NewBatchError("job_repository", fmt.Sprintf("データベース (%s) への接続に失敗しました", cfg.Type), err, exception.IsTemporary(err), false)
	}

	if cfg.AutoMigrate {
		if database.SupportsMigration(conn.DBType()) {
			if err := database.RunMigrations(conn); err != nil {
				_ = conn.Close()
				return nil, err
			}
		} else {
			logger.Warnf("データベースタイプ '%s' はマイグレーションに対応していません。スキーマは事前に作成してください。", conn.DBType())
		}
	}

	logger.Infof("SQL JobRepository (%s) を使用します。", conn.DBType())
	return NewSQLJobRepository(conn), nil
}
