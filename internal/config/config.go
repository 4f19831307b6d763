// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	Commit         string
	BuildTime      string
	StaticDir      string
	DevFrontendURL string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string

	StoreDriver   string // sqlite, mysql or memory
	SQLitePath    string
	MigrationsDir string
	MySQL         MySQLConfig

	TokenStore     string // sql or redis
	RedisURL       string
	UnlockTokenTTL time.Duration
	PurgeInterval  time.Duration

	PublicBaseURL string
	JWTSecret     string
	AdminEmail    string
	AdminPassword string

	Notify NotifyConfig

	SeedDemo bool
}

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

type NotifyConfig struct {
	Driver        string // log, smtp or webhook
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	From          string
	WebhookURL    string
	WebhookSecret string
	Timeout       time.Duration
	DefaultTo     string
}

// Load reads .env (when present) and the process environment.
// It reports whether a .env file was loaded so the caller can log it.
func Load() (*Config, bool, error) {
	loaded := godotenv.Load() == nil
	cfg := &Config{
		Addr:           env("ADDR", ":8080"),
		Commit:         env("COMMIT", ""),
		BuildTime:      env("BUILD_TIME", ""),
		StaticDir:      env("STATIC_DIR", ""),
		DevFrontendURL: env("DEV_FRONTEND_URL", ""),
		LogLevel:       env("LOG_LEVEL", "info"),
		ReadTimeout:    envDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:   envDuration("WRITE_TIMEOUT", 15*time.Second),
		AllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),

		StoreDriver:   strings.ToLower(env("STORE_DRIVER", "sqlite")),
		SQLitePath:    env("SQLITE_PATH", "data/addonware.db"),
		MigrationsDir: env("MIGRATIONS_DIR", ""),
		MySQL: MySQLConfig{
			Host:            env("MYSQL_HOST", "127.0.0.1"),
			Port:            envInt("MYSQL_PORT", 3306),
			User:            env("MYSQL_USER", "root"),
			Password:        env("MYSQL_PASSWORD", ""),
			Database:        env("MYSQL_DATABASE", "addonware"),
			MaxOpenConns:    envInt("MYSQL_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		TokenStore:     strings.ToLower(env("TOKEN_STORE", "sql")),
		RedisURL:       env("REDIS_URL", "redis://127.0.0.1:6379/0"),
		UnlockTokenTTL: envDuration("UNLOCK_TOKEN_TTL", 7*24*time.Hour),
		PurgeInterval:  envDuration("TOKEN_PURGE_INTERVAL", time.Hour),

		PublicBaseURL: strings.TrimRight(env("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		JWTSecret:     env("JWT_SECRET", "addonware-dev-secret"),
		AdminEmail:    env("ADMIN_EMAIL", ""),
		AdminPassword: env("ADMIN_PASSWORD", ""),

		Notify: NotifyConfig{
			Driver:        strings.ToLower(env("NOTIFY_DRIVER", "log")),
			SMTPHost:      env("SMTP_HOST", ""),
			SMTPPort:      envInt("SMTP_PORT", 587),
			SMTPUser:      env("SMTP_USER", ""),
			SMTPPassword:  env("SMTP_PASSWORD", ""),
			From:          env("SMTP_FROM", "no-reply@addonware.de"),
			WebhookURL:    env("NOTIFY_WEBHOOK_URL", ""),
			WebhookSecret: env("NOTIFY_WEBHOOK_SECRET", ""),
			Timeout:       envDuration("NOTIFY_TIMEOUT", 10*time.Second),
			DefaultTo:     env("DEFAULT_NOTIFY_EMAIL", ""),
		},

		SeedDemo: envBool("SEED_DEMO", false),
	}
	if err := cfg.validate(); err != nil {
		return nil, loaded, err
	}
	return cfg, loaded, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "sqlite", "mysql", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.TokenStore {
	case "sql", "redis":
	default:
		return fmt.Errorf("unsupported TOKEN_STORE %q", c.TokenStore)
	}
	switch c.Notify.Driver {
	case "log":
	case "smtp":
		if c.Notify.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST required for NOTIFY_DRIVER=smtp")
		}
	case "webhook":
		if c.Notify.WebhookURL == "" {
			return fmt.Errorf("NOTIFY_WEBHOOK_URL required for NOTIFY_DRIVER=webhook")
		}
	default:
		return fmt.Errorf("unsupported NOTIFY_DRIVER %q", c.Notify.Driver)
	}
	if c.UnlockTokenTTL <= 0 {
		return fmt.Errorf("UNLOCK_TOKEN_TTL must be positive")
	}
	return nil
}

// env returns the environment variable value for key, or fallback if empty.
func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(env(key, "")); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(env(key, "")); err == nil {
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(env(key, "")); err == nil {
		return d
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(env(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
