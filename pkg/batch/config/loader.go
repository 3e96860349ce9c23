package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// BytesConfigLoader はバイトスライスから設定をロードする ConfigLoader の実装です。
type BytesConfigLoader struct {
	data []byte
}

// NewBytesConfigLoader は新しい BytesConfigLoader のインスタンスを作成します。
func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load は埋め込まれたバイトスライスから設定をロードし、環境変数で上書きします。
// YAML に記載されていない項目は NewConfig のデフォルト値が残ります。
func (l *BytesConfigLoader) Load() (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(l.data, cfg); err != nil {
		return nil, fmt.Errorf("YAML設定のパースに失敗しました: %w", err)
	}
	cfg.EmbeddedConfig = l.data

	loadEnvVars(cfg)

	return cfg, nil
}

// 環境変数で個別の設定値を上書きする関数
func loadEnvVars(cfg *Config) {
	// Database 設定
	setString("DATABASE_TYPE", &cfg.Database.Type)
	setString("DATABASE_HOST", &cfg.Database.Host)
	setInt("DATABASE_PORT", &cfg.Database.Port)
	setString("DATABASE_DATABASE", &cfg.Database.Database)
	setString("DATABASE_USER", &cfg.Database.User)
	setString("DATABASE_PASSWORD", &cfg.Database.Password)
	setString("DATABASE_SSLMODE", &cfg.Database.Sslmode)
	setString("DATABASE_PATH", &cfg.Database.Path)
	setString("DATABASE_ACCOUNT", &cfg.Database.Account)
	setString("DATABASE_WAREHOUSE", &cfg.Database.Warehouse)
	setString("DATABASE_SCHEMA", &cfg.Database.Schema)
	setString("DATABASE_ROLE", &cfg.Database.Role)
	if v := os.Getenv("DATABASE_AUTO_MIGRATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.AutoMigrate = b
		} else {
			logger.Warnf("DATABASE_AUTO_MIGRATE の値 '%s' が無効です。設定ファイルの値を使用します。", v)
		}
	}
	setInt("DATABASE_MAX_OPEN_CONNS", &cfg.Database.ConnectionPool.MaxOpenConns)
	setInt("DATABASE_MAX_IDLE_CONNS", &cfg.Database.ConnectionPool.MaxIdleConns)
	setInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", &cfg.Database.ConnectionPool.ConnMaxLifetimeSeconds)

	// Batch 設定
	setString("BATCH_JOB_NAME", &cfg.Batch.JobName)

	// System 設定
	setString("SYSTEM_TIMEZONE", &cfg.System.Timezone)
	setString("SYSTEM_LOGGING_LEVEL", &cfg.System.Logging.Level)
}

func setString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("%s の値 '%s' が無効です。デフォルト値または設定ファイルの値を使用します。", name, v)
		return
	}
	*dst = n
}
