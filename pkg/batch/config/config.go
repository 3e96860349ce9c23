package config

import (
	"fmt"
	"strings"
)

// EmbeddedConfig は、設定ファイルの内容を保持するためのフィールドです。
// main.go から渡される埋め込み設定を格納します。
type EmbeddedConfig []byte

// ConnectionPoolConfig はデータベースコネクションプールの設定を保持します。
type ConnectionPoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// DatabaseConfig は JobRepository が使用するデータベースの設定です。
// Type が "memory" の場合はデータベースを使用せず、インメモリの JobRepository を使います。
type DatabaseConfig struct {
	Type      string `yaml:"type"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Sslmode   string `yaml:"sslmode"`
	Path      string `yaml:"path"`      // sqlite のデータベースファイル
	Account   string `yaml:"account"`   // snowflake
	Warehouse string `yaml:"warehouse"` // snowflake
	Schema    string `yaml:"schema"`    // snowflake
	Role      string `yaml:"role"`      // snowflake
	// フレームワークのスキーママイグレーションを起動時に実行するかどうか
	AutoMigrate    bool                 `yaml:"auto_migrate"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

// ConnectionString は database/sql ドライバに渡す接続文字列を返します。
// snowflake の DSN は connector パッケージで gosnowflake を使って組み立てます。
func (c DatabaseConfig) ConnectionString() string {
	switch strings.ToLower(c.Type) {
	case "postgres", "redshift":
		sslmode := c.Sslmode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, sslmode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "sqlite":
		if c.Path == "" {
			return "file::memory:?cache=shared"
		}
		return c.Path
	default:
		return ""
	}
}

// BatchConfig はバッチ実行に関する設定です。
type BatchConfig struct {
	JobName string `yaml:"job_name"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level string `yaml:"level"`
}

type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

type Config struct {
	Database       DatabaseConfig `yaml:"database"`
	Batch          BatchConfig    `yaml:"batch"`
	System         SystemConfig   `yaml:"system"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"` // YAMLからは読み込まない。
}

// NewConfig はデフォルト値を設定した Config の新しいインスタンスを返します。
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type: "memory",
		},
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO"},
		},
	}
}
