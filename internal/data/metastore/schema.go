package metastore

import (
	"database/sql"
	"fmt"
)

const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS last_good (
  workspace_key TEXT NOT NULL DEFAULT 'default',
  label TEXT NOT NULL,
  records_json TEXT NOT NULL,
  record_count INTEGER NOT NULL,
  updated_at_utc TEXT NOT NULL,
  PRIMARY KEY (workspace_key, label)
);
CREATE INDEX IF NOT EXISTS idx_last_good_workspace ON last_good(workspace_key);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS last_good_artifacts (
  workspace_key TEXT NOT NULL DEFAULT 'default',
  label TEXT NOT NULL,
  binary_path TEXT NOT NULL,
  source_path TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (workspace_key, label, binary_path),
  FOREIGN KEY (workspace_key, label) REFERENCES last_good(workspace_key, label) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_last_good_artifacts_binary ON last_good_artifacts(binary_path);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
