package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Inspirimental/addonware-web-sub000/internal/api"
	"github.com/Inspirimental/addonware-web-sub000/internal/config"
	dbstore "github.com/Inspirimental/addonware-web-sub000/internal/db"
	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/redisstore"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore connects the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (api.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		return api.NewMemoryStore(), nopCloser{}, nil
	case "mysql":
		conn, err := dbstore.OpenMySQL(ctx, dbstore.MySQLConfig{
			Host:            cfg.MySQL.Host,
			Port:            cfg.MySQL.Port,
			User:            cfg.MySQL.User,
			Password:        cfg.MySQL.Password,
			Database:        cfg.MySQL.Database,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := dbstore.RunMigrations(ctx, conn, dbstore.DialectMySQL, cfg.MigrationsDir); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		store, err := dbstore.NewMySQLStore(conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		log.WithField("host", cfg.MySQL.Host).Info("mysql store ready")
		return store, store, nil
	default:
		conn, err := dbstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := dbstore.NewSQLiteStore(conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		if err := dbstore.RunMigrations(ctx, conn, dbstore.DialectSQLite, cfg.MigrationsDir); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		log.WithField("path", cfg.SQLitePath).Info("sqlite store ready")
		return store, store, nil
	}
}

// openTokenStore returns nil when tokens stay in the main store.
func openTokenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (services.TokenStore, io.Closer, error) {
	if cfg.TokenStore != "redis" {
		return nil, nopCloser{}, nil
	}
	client, err := redisstore.Open(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("unlock tokens kept in redis")
	return redisstore.NewTokenStore(client, ""), closerFunc(func() error { return client.Close() }), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

