package connector

import (
	_ "github.com/lib/pq" // Redshift は PostgreSQL と互換性があるため、pq ドライバを使用

	config "github.com/tigerroll/lines_batch/pkg/batch/config"
)

// redshiftConnector は Redshift への接続を確立する DBConnector の実装です。
type redshiftConnector struct{}

func (c *redshiftConnector) DriverName() string { return "postgres" }

func (c *redshiftConnector) DSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.Port == 0 {
		cfg.Port = 5439
	}
	return cfg.ConnectionString(), nil
}

func init() {
	RegisterConnector("redshift", &redshiftConnector{})
}
