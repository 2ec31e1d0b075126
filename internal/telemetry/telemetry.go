// Package telemetry records search-query metrics (mode, term, result
// count, latency) in a pure-Go SQLite store, supplementing spec.md's
// core with the observability layer its ambient stack implies
// (SPEC_FULL.md E2).
package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// LatencyBucket names one latency histogram bin.
type LatencyBucket string

const (
	BucketUnder10ms   LatencyBucket = "<10ms"
	Bucket10to50ms    LatencyBucket = "10-50ms"
	Bucket50to100ms   LatencyBucket = "50-100ms"
	Bucket100to500ms  LatencyBucket = "100-500ms"
	BucketOver500ms   LatencyBucket = ">500ms"
)

// Bucket classifies d into a LatencyBucket.
func Bucket(d time.Duration) LatencyBucket {
	switch {
	case d < 10*time.Millisecond:
		return BucketUnder10ms
	case d < 50*time.Millisecond:
		return Bucket10to50ms
	case d < 100*time.Millisecond:
		return Bucket50to100ms
	case d < 500*time.Millisecond:
		return Bucket100to500ms
	default:
		return BucketOver500ms
	}
}

// Store persists query telemetry in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a telemetry database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS query_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		mode TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		latency_bucket TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordQuery logs one search invocation.
func (s *Store) RecordQuery(query, mode string, resultCount int, latency time.Duration) error {
	bucket := Bucket(latency)

	if _, err := s.db.Exec(
		`INSERT INTO query_log (query, mode, result_count, latency_bucket) VALUES (?, ?, ?, ?)`,
		query, mode, resultCount, string(bucket),
	); err != nil {
		return fmt.Errorf("record query: %w", err)
	}

	if resultCount == 0 {
		if _, err := s.db.Exec(`INSERT INTO zero_result_queries (query) VALUES (?)`, query); err != nil {
			return fmt.Errorf("record zero-result query: %w", err)
		}
		if _, err := s.db.Exec(`
			DELETE FROM zero_result_queries
			WHERE id NOT IN (SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT 100)
		`); err != nil {
			return fmt.Errorf("trim zero-result queries: %w", err)
		}
	}
	return nil
}

// RecentZeroResultQueries returns the most recent queries that matched
// nothing, most-recent first.
func (s *Store) RecentZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`SELECT query FROM zero_result_queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// LatencyHistogram returns counts per bucket across all recorded queries.
func (s *Store) LatencyHistogram() (map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`SELECT latency_bucket, COUNT(*) FROM query_log GROUP BY latency_bucket`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}
		out[LatencyBucket(bucket)] = count
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
