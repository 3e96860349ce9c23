package connector

import (
	"github.com/snowflakedb/gosnowflake" // "snowflake" ドライバを登録

	config "github.com/tigerroll/lines_batch/pkg/batch/config"
)

// snowflakeConnector は Snowflake への接続を確立する DBConnector の実装です。
// Snowflake 用の埋め込みマイグレーションはないため、テーブルは事前に作成しておく必要があります。
type snowflakeConnector struct{}

func (c *snowflakeConnector) DriverName() string { return "snowflake" }

func (c *snowflakeConnector) DSN(cfg config.DatabaseConfig) (string, error) {
	return gosnowflake.DSN(&gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
}

func init() {
	RegisterConnector("snowflake", &snowflakeConnector{})
}
