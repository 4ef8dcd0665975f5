// Package metastore persists the last successfully extracted metadata
// records per label in sqlite, so a broken build still yields a classpath.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bazelcp/internal/engine/label"
	"bazelcp/internal/engine/metadata"
	"bazelcp/internal/shared/observability"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path      string
	workspace string
	db        *sql.DB
	mu        sync.Mutex
	now       func() time.Time
}

// Open creates or opens the store at path. Records are partitioned by
// workspaceKey so several workspaces can share one file.
func Open(path, workspaceKey string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("metadata store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("metadata store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite metadata store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite metadata store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	workspaceKey = strings.TrimSpace(workspaceKey)
	if workspaceKey == "" {
		workspaceKey = "default"
	}
	return &Store{path: cleanPath, workspace: workspaceKey, db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveLastGood replaces the stored records for l.
func (s *Store) SaveLastGood(ctx context.Context, l label.Label, records []*metadata.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := metadata.MarshalRecords(records)
	if err != nil {
		return fmt.Errorf("encode records for %s: %w", l, err)
	}
	updated := s.now().UTC().Format(time.RFC3339Nano)

	return s.withRetry("save last good", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO last_good (workspace_key, label, records_json, record_count, updated_at_utc)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(workspace_key, label) DO UPDATE SET
  records_json=excluded.records_json,
  record_count=excluded.record_count,
  updated_at_utc=excluded.updated_at_utc
`, s.workspace, l.String(), string(payload), len(records), updated); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM last_good_artifacts WHERE workspace_key = ? AND label = ?`,
			s.workspace, l.String(),
		); err != nil {
			return err
		}
		for _, rec := range records {
			for _, art := range rec.Artifacts() {
				if art.Binary == "" {
					continue
				}
				if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO last_good_artifacts (workspace_key, label, binary_path, source_path)
VALUES (?, ?, ?, ?)
`, s.workspace, l.String(), art.Binary, art.Source); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	})
}

// LoadLastGood returns the stored records for l. ok is false when nothing
// was stored.
func (s *Store) LoadLastGood(ctx context.Context, l label.Label) ([]*metadata.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.withRetry("load last good", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT records_json FROM last_good WHERE workspace_key = ? AND label = ?`,
			s.workspace, l.String(),
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		observability.CacheEventsTotal.WithLabelValues("last_good", "miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	records, err := metadata.UnmarshalRecords([]byte(payload))
	if err != nil {
		return nil, false, fmt.Errorf("decode last good records for %s: %w", l, err)
	}
	observability.CacheEventsTotal.WithLabelValues("last_good", "hit").Inc()
	return records, true, nil
}

// Forget drops the stored records for l.
func (s *Store) Forget(ctx context.Context, l label.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("forget last good", func() error {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM last_good WHERE workspace_key = ? AND label = ?`,
			s.workspace, l.String(),
		)
		return err
	})
}

// Labels lists every label with stored records, sorted.
func (s *Store) Labels(ctx context.Context) ([]label.Label, error) {
	rows, err := s.queryStrings(ctx, "list labels",
		`SELECT label FROM last_good WHERE workspace_key = ? ORDER BY label ASC`)
	if err != nil {
		return nil, err
	}
	out := make([]label.Label, 0, len(rows))
	for _, raw := range rows {
		l, err := label.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("stored label %q: %w", raw, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// ArtifactPaths lists the distinct binary artifacts of all stored records.
func (s *Store) ArtifactPaths(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "list artifacts", `
SELECT DISTINCT binary_path FROM last_good_artifacts
WHERE workspace_key = ?
ORDER BY binary_path ASC
`)
}

func (s *Store) queryStrings(ctx context.Context, op, query string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry(op, func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, s.workspace)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", op, err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
