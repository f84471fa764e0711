package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// Migrate applies every migration not yet recorded in schema_migrations, in
// file name order. Each migration runs in its own transaction.
//
// The first migrations use IF NOT EXISTS so files created by earlier
// releases (which had no schema_migrations table) are adopted in place.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	count := 0
	for _, filename := range files {
		version := strings.SplitN(filename, "_", 2)[0]
		if applied[version] {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", filename)
			}
			continue
		}

		body, err := migrations.ReadFile(path.Join(migrationsDir, filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", filename, "version", version)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "begin tx for %s", filename)
		}
		if _, err := tx.Exec(string(body)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute %s", filename)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record %s", filename)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit %s", filename)
		}
		count++
	}

	if logger != nil && count > 0 {
		logger.Infow("Migrations complete", "symbol", sym.DB, "applied", count, "total", len(files))
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, or "" for a
// database that has never been migrated.
func SchemaVersion(db *sql.DB) (string, error) {
	applied, err := appliedVersions(db)
	if err != nil {
		return "", err
	}
	latest := ""
	for v := range applied {
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	var exists int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'",
	).Scan(&exists)
	if err != nil {
		return nil, errors.Wrap(err, "check schema_migrations")
	}

	applied := map[string]bool{}
	if exists == 0 {
		return applied, nil
	}

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, errors.Wrap(err, "list applied migrations")
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan migration version")
		}
		applied[v] = true
	}
	return applied, errors.Wrap(rows.Err(), "list applied migrations")
}
