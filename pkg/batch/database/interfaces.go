package database

import (
	"context"
	"database/sql"
)

// Tx はデータベーストランザクションのインターフェースです。
// sql.Tx の必要なメソッドを抽象化します。
type Tx interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DBConnection はデータベース接続のインターフェースです。
// sql.DB の必要なメソッドを抽象化します。
type DBConnection interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	// DBType は接続先のデータベースタイプ (例: "postgres", "mysql") を返します。
	DBType() string
}

// sqlDBAdapter は sql.DB を database.DBConnection インターフェースに適合させるアダプターです。
type sqlDBAdapter struct {
	db     *sql.DB
	dbType string
}

// NewSQLDBAdapter は新しい sqlDBAdapter のインスタンスを作成します。
func NewSQLDBAdapter(db *sql.DB, dbType string) DBConnection {
	return &sqlDBAdapter{db: db, dbType: dbType}
}

// sqlTxAdapter は sql.Tx を database.Tx インターフェースに適合させるアダプターです。
type sqlTxAdapter struct {
	tx     *sql.Tx
	dbType string
}

func (a *sqlTxAdapter) Commit() error {
	return a.tx.Commit()
}

func (a *sqlTxAdapter) Rollback() error {
	return a.tx.Rollback()
}

func (a *sqlTxAdapter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.tx.ExecContext(ctx, Rebind(a.dbType, query), args...)
}

func (a *sqlTxAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.tx.QueryContext(ctx, Rebind(a.dbType, query), args...)
}

func (a *sqlTxAdapter) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return a.tx.QueryRowContext(ctx, Rebind(a.dbType, query), args...)
}

// BeginTx は sql.DB の BeginTx メソッドを呼び出し、結果を database.Tx でラップします。
func (a *sqlDBAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := a.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTxAdapter{tx: tx, dbType: a.dbType}, nil
}

func (a *sqlDBAdapter) Close() error {
	return a.db.Close()
}

func (a *sqlDBAdapter) PingContext(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *sqlDBAdapter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.db.ExecContext(ctx, Rebind(a.dbType, query), args...)
}

func (a *sqlDBAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.db.QueryContext(ctx, Rebind(a.dbType, query), args...)
}

func (a *sqlDBAdapter) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return a.db.QueryRowContext(ctx, Rebind(a.dbType, query), args...)
}

func (a *sqlDBAdapter) DBType() string {
	return a.dbType
}

// RawDB は DBConnection が sqlDBAdapter の場合に基盤となる *sql.DB を返します。
func RawDB(conn DBConnection) (*sql.DB, bool) {
	a, ok := conn.(*sqlDBAdapter)
	if !ok {
		return nil, false
	}
	return a.db, true
}
