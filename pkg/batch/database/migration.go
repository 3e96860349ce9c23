package database

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// MigrationsTable はバッチフレームワークのマイグレーション履歴を記録するテーブル名です。
const MigrationsTable = "batch_schema_migrations"

//go:embed migrations
var migrationFS embed.FS

// SupportsMigration は dbType に対応する埋め込みマイグレーションがあるかどうかを返します。
func SupportsMigration(dbType string) bool {
	switch strings.ToLower(dbType) {
	case "postgres", "mysql", "sqlite":
		return true
	default:
		return false
	}
}

// RunMigrations は埋め込まれたフレームワークのスキーマを conn に適用します。
// migrate インスタンスは Close しません。Close すると conn の *sql.DB まで閉じられるためです。
func RunMigrations(conn DBConnection) error {
	dbType := strings.ToLower(conn.DBType())
	if !SupportsMigration(dbType) {
		return exception.NewBatchErrorf("migration", "サポートされていないデータベースタイプ: %s", dbType)
	}
	db, ok := RawDB(conn)
	if !ok {
		return exception.NewBatchErrorf("migration", "DBConnection から *sql.DB を取得できませんでした")
	}

	logger.Infof("データベースマイグレーションを開始します。DBタイプ: %s", dbType)

	var (
		driver migratedb.Driver
		err    error
	)
	switch dbType {
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		driver, err = mysql.WithInstance(db, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: MigrationsTable})
	}
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションドライバの作成に失敗しました", err, false, false)
	}

	src, err := iofs.New(migrationFS, "migrations/"+dbType)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションソースの読み込みに失敗しました", err, false, false)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, dbType, driver)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションインスタンスの作成に失敗しました", err, false, false)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("マイグレーションは不要です。データベースは最新の状態です。")
			return nil
		}
		return exception.NewBatchError("migration", "マイグレーションの実行に失敗しました", err, false, false)
	}

	logger.Infof("データベースマイグレーションが正常に完了しました。")
	return nil
}
