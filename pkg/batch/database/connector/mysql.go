package connector

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	config "github.com/tigerroll/lines_batch/pkg/batch/config"
)

// mysqlConnector は MySQL への接続を確立する DBConnector の実装です。
type mysqlConnector struct{}

func (c *mysqlConnector) DriverName() string { return "mysql" }

// DSN は mysql.Config を使って接続文字列を組み立てます。
// マイグレーションで複数ステートメントを実行するため multiStatements を有効にします。
func (c *mysqlConnector) DSN(cfg config.DatabaseConfig) (string, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.MultiStatements = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

func init() {
	RegisterConnector("mysql", &mysqlConnector{})
}
