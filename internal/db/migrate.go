package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var embeddedMigrations embed.FS

type migrationFile struct {
	name string
	data []byte
}

// RunMigrations applies pending migrations for dialect. Files are read from
// dir/<dialect> when that directory exists, otherwise from the embedded set.
// Applied file names are recorded in schema_migrations.
func RunMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	files, err := loadMigrations(dialect, dir)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name VARCHAR(191) NOT NULL PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	for _, mf := range files {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE name = ?", mf.name).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", mf.name, err)
		}
		if n > 0 {
			continue
		}
		for _, stmt := range splitStatements(string(mf.data)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", mf.name, err)
			}
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)", mf.name, time.Now().UTC().UnixMilli()); err != nil {
			return fmt.Errorf("record migration %s: %w", mf.name, err)
		}
	}
	return nil
}

// splitStatements breaks a migration file on semicolons at line ends. The
// MySQL driver runs one statement per Exec unless multiStatements is set.
func splitStatements(src string) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(cur.String()); stmt != ";" {
				out = append(out, strings.TrimSuffix(stmt, ";"))
			}
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

func loadMigrations(dialect, dir string) ([]migrationFile, error) {
	if dialect != DialectSQLite && dialect != DialectMySQL {
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
	var files []migrationFile
	if dir != "" {
		d := filepath.Join(dir, dialect)
		entries, err := os.ReadDir(d)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
					continue
				}
				content, err := os.ReadFile(filepath.Join(d, entry.Name()))
				if err != nil {
					return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
				}
				files = append(files, migrationFile{name: entry.Name(), data: content})
			}
			sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
			return files, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read migrations: %w", err)
		}
	}

	root := path.Join("migrations", dialect)
	entries, err := embeddedMigrations.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := embeddedMigrations.ReadFile(path.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read embedded migration %s: %w", entry.Name(), err)
		}
		files = append(files, migrationFile{name: entry.Name(), data: content})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}
