package db

import (
	"database/sql"
	"os"

	"github.com/teranos/htsmatch/errors"
)

// Stats describes the database file for `htsmatch db stats`.
type Stats struct {
	Path          string
	SizeBytes     int64
	SchemaVersion string
	Matches       int64
	LogEntries    int64
}

// GetStats collects file and table statistics.
func GetStats(db *sql.DB, path string) (*Stats, error) {
	stats := &Stats{Path: path}

	if info, err := os.Stat(path); err == nil {
		stats.SizeBytes = info.Size()
	}

	version, err := SchemaVersion(db)
	if err != nil {
		return nil, err
	}
	stats.SchemaVersion = version

	if err := db.QueryRow("SELECT COUNT(*) FROM product_matches").Scan(&stats.Matches); err != nil {
		return nil, errors.Wrap(err, "count product_matches")
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM processing_log").Scan(&stats.LogEntries); err != nil {
		return nil, errors.Wrap(err, "count processing_log")
	}
	return stats, nil
}
