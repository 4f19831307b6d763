package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// MySQLConfig holds connection settings for the MySQL backend.
type MySQLConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenSQLite opens (and creates) the database file at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// MySQLDSN renders cfg for the go-sql-driver.
func MySQLDSN(cfg MySQLConfig) string {
	dc := mysql.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dc.DBName = cfg.Database
	dc.ParseTime = true
	dc.Params = map[string]string{"charset": "utf8mb4"}
	dc.Collation = "utf8mb4_unicode_ci"
	return dc.FormatDSN()
}

// OpenMySQL connects with a few retries, since the database container often
// starts after the service.
func OpenMySQL(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	dsn := MySQLDSN(cfg)
	const maxRetries = 5
	var (
		db  *sql.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				break
			}
			db.Close()
		}
		if i == maxRetries-1 {
			return nil, fmt.Errorf("connect mysql after %d attempts: %w", maxRetries, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}
