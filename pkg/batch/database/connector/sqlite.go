package connector

import (
	_ "modernc.org/sqlite" // pure go sqlite ドライバ

	config "github.com/tigerroll/lines_batch/pkg/batch/config"
)

// sqliteConnector は SQLite への接続を確立する DBConnector の実装です。
// ローカル実行やテストで JobRepository を永続化する用途を想定しています。
type sqliteConnector struct{}

func (c *sqliteConnector) DriverName() string { return "sqlite" }

func (c *sqliteConnector) DSN(cfg config.DatabaseConfig) (string, error) {
	return cfg.ConnectionString(), nil
}

func init() {
	RegisterConnector("sqlite", &sqliteConnector{})
}
