package connector

import (
	_ "github.com/lib/pq" // PostgreSQL ドライバ

	config "github.com/tigerroll/lines_batch/pkg/batch/config"
)

// postgresConnector は PostgreSQL への接続を確立する DBConnector の実装です。
type postgresConnector struct{}

func (c *postgresConnector) DriverName() string { return "postgres" }

func (c *postgresConnector) DSN(cfg config.DatabaseConfig) (string, error) {
	return cfg.ConnectionString(), nil
}

func init() {
	RegisterConnector("postgres", &postgresConnector{})
}
