package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	config "github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/database"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// DBConnector は特定のデータベースタイプへの接続を確立するためのインターフェースです。
type DBConnector interface {
	// DriverName は sql.Open に渡すドライバ名を返します。
	DriverName() string
	// DSN は設定から接続文字列を組み立てます。
	DSN(cfg config.DatabaseConfig) (string, error)
}

var (
	mu         sync.RWMutex
	connectors = make(map[string]DBConnector)
)

// RegisterConnector は指定されたタイプ名で DBConnector を登録します。
func RegisterConnector(dbType string, connector DBConnector) {
	mu.Lock()
	defer mu.Unlock()
	key := strings.ToLower(dbType)
	if _, exists := connectors[key]; exists {
		logger.Warnf("DBConnector '%s' は既に登録されています。上書きします。", key)
	}
	connectors[key] = connector
}

// Lookup は登録済みの DBConnector を返します。
func Lookup(dbType string) (DBConnector, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := connectors[strings.ToLower(dbType)]
	return c, ok
}

// GetSQLDB は設定に基づいて *sql.DB を開き、コネクションプール設定を適用します。
// 接続確認 (Ping) は行いません。
func GetSQLDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	c, ok := Lookup(cfg.Type)
	if !ok {
		return nil, exception.NewBatchError("database", fmt.Sprintf("未対応のデータベースタイプ: %s", cfg.Type), nil, false, false)
	}
	dsn, err := c.DSN(cfg)
	if err != nil {
		return nil, exception.NewBatchError("database", fmt.Sprintf("%s の接続文字列の構築に失敗しました", cfg.Type), err, false, false)
	}
	db, err := sql.Open(c.DriverName(), dsn)
	if err != nil {
		return nil, exception.NewBatchError("database", fmt.Sprintf("%s への接続に失敗しました", cfg.Type), err, false, false)
	}
	applyPoolConfig(db, cfg.ConnectionPool)
	return db, nil
}

func applyPoolConfig(db *sql.DB, pool config.ConnectionPoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	logger.Debugf("コネクションプール設定を適用しました。MaxOpenConns: %d, MaxIdleConns: %d, ConnMaxLifetime: %d秒",
		pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetimeSeconds)
}

// NewDBConnectionFromConfig は設定に基づいて接続を確立し、Ping で疎通を確認します。
func NewDBConnectionFromConfig(ctx context.Context, cfg config.DatabaseConfig) (database.DBConnection, error) {
	rawDB, err := GetSQLDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := rawDB.PingContext(ctx); err != nil {
		rawDB.Close()
		return nil, exception.NewBatchError("database", "データベースへのPingに失敗しました", err, true, false)
	}
	logger.Debugf("%s に正常に接続しました。", cfg.Type)
	return database.NewSQLDBAdapter(rawDB, strings.ToLower(cfg.Type)), nil
}
