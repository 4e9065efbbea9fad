package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Migration files live in migration/{driver}/NN__description.sql and are applied
// in lexical order. Each applied file is recorded by name in schema_migration, so
// Migrate is idempotent. In demo mode the files under seed/{driver}/ are applied
// the same way after the schema.

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	// MigrateFileNameSplit separates the sequence number from the description, e.g. "01__drop_item.sql".
	MigrateFileNameSplit = "__"

	modeDemo = "demo"

	createMigrationTable = `CREATE TABLE IF NOT EXISTS schema_migration (
  name TEXT NOT NULL PRIMARY KEY,
  applied_ts BIGINT NOT NULL
)`
)

// validateMigrationFileName checks the "NN__description.sql" naming convention.
func validateMigrationFileName(filename string) error {
	prefix, _, found := strings.Cut(filename, MigrateFileNameSplit)
	if !found {
		return errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	if _, err := strconv.Atoi(prefix); err != nil {
		return errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return nil
}

// Migrate brings the schema up to date and seeds demo data in demo mode.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if !initialized {
		slog.Info("initializing new database", slog.String("driver", s.profile.Driver))
	}
	if _, err := s.driver.GetDB().ExecContext(ctx, createMigrationTable); err != nil {
		return errors.Wrap(err, "failed to create schema_migration table")
	}

	applied, err := s.applyFiles(ctx, migrationFS, fmt.Sprintf("migration/%s", s.profile.Driver))
	if err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", applied))

	if s.profile.Mode == modeDemo {
		seeded, err := s.applyFiles(ctx, seedFS, fmt.Sprintf("seed/%s", s.profile.Driver))
		if err != nil {
			return errors.Wrap(err, "failed to seed")
		}
		if seeded > 0 {
			slog.Info("demo data seeded", slog.Int("seedFiles", seeded))
		}
	}
	return nil
}

// ListAppliedMigrations returns the names of the applied migration and seed files.
func (s *Store) ListAppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.driver.GetDB().QueryContext(ctx, "SELECT name FROM schema_migration ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list applied migrations")
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// applyFiles applies every not yet recorded file of dir in one transaction
// and returns how many were applied.
func (s *Store) applyFiles(ctx context.Context, fsys fs.FS, dir string) (int, error) {
	filePaths, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", dir)
	}
	sort.Strings(filePaths)

	done, err := s.ListAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}
	appliedSet := make(map[string]bool, len(done))
	for _, name := range done {
		appliedSet[name] = true
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	applied := 0
	for _, filePath := range filePaths {
		if appliedSet[filePath] {
			continue
		}
		if err := validateMigrationFileName(path.Base(filePath)); err != nil {
			return 0, err
		}
		bytes, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to read %s", filePath)
		}
		slog.Info("applying migration", slog.String("file", filePath))
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return 0, errors.Wrapf(err, "failed to execute %s", filePath)
		}
		if _, err := tx.ExecContext(ctx, s.recordMigrationStmt(), filePath, time.Now().Unix()); err != nil {
			return 0, errors.Wrapf(err, "failed to record %s", filePath)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit migration transaction")
	}
	return applied, nil
}

func (s *Store) recordMigrationStmt() string {
	if s.profile.Driver == "postgres" {
		return "INSERT INTO schema_migration (name, applied_ts) VALUES ($1, $2)"
	}
	return "INSERT INTO schema_migration (name, applied_ts) VALUES (?, ?)"
}

// execute runs a SQL file. PostgreSQL cannot run several statements in one
// prepared call, so its files are split first.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, stmt string) error {
	if s.profile.Driver != "postgres" {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to execute statement")
		}
		return nil
	}
	for i, part := range splitSQL(stmt) {
		if _, err := tx.ExecContext(ctx, part); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, part)
		}
	}
	return nil
}

// splitSQL splits a SQL file on semicolons outside quotes and comments.
// Dollar-quoted bodies are kept whole.
func splitSQL(sql string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	inSingleQuote := false
	inBlockComment := false
	dollarTag := ""
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inBlockComment:
			if ch == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				inBlockComment = false
				i++
			}
		case dollarTag != "":
			if strings.HasPrefix(sql[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
			} else {
				current.WriteByte(ch)
			}
		case inSingleQuote:
			current.WriteByte(ch)
			if ch == '\'' {
				inSingleQuote = false
			}
		case ch == '\'':
			inSingleQuote = true
			current.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
		case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
			inBlockComment = true
			i++
		case ch == '$':
			end := strings.IndexByte(sql[i+1:], '$')
			if end < 0 || !isDollarTag(sql[i+1:i+1+end]) {
				current.WriteByte(ch)
				continue
			}
			dollarTag = sql[i : i+end+2]
			current.WriteString(dollarTag)
			i += end + 1
		case ch == ';':
			current.WriteByte(ch)
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return statements
}

// isDollarTag reports whether name can appear between the dollars of a
// dollar-quote opener. Positional parameters like $1 are not openers.
func isDollarTag(name string) bool {
	for i, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
