package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/rnupgrade/internal/config"
	_ "modernc.org/sqlite"
)

// Subdirs are the working directories kept next to the database: cached
// upstream diffs, cached model responses, chat sessions and saved reports.
var Subdirs = []string{"diffs", "cache", "sessions", "reports"}

// migrations[i] moves the schema from version i to i+1.
var migrations = []string{
	`
	CREATE TABLE runs (
	  id                TEXT PRIMARY KEY,
	  project           TEXT NOT NULL,
	  from_version      TEXT NOT NULL,
	  to_version        TEXT NOT NULL,
	  model             TEXT NOT NULL,
	  interactive       INTEGER NOT NULL,
	  exited            INTEGER NOT NULL,
	  prompt_tokens     INTEGER NOT NULL,
	  completion_tokens INTEGER NOT NULL,
	  cost              TEXT NOT NULL,
	  created_at        INTEGER NOT NULL,
	  finished_at       INTEGER NOT NULL,
	  deleted_at        INTEGER
	);

	CREATE INDEX idx_runs_project_created
	ON runs(project, created_at DESC)
	WHERE deleted_at IS NULL;

	CREATE TABLE run_files (
	  run_id              TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	  path                TEXT NOT NULL,
	  change              TEXT NOT NULL,
	  error               TEXT,
	  custom_prompts_json TEXT,
	  PRIMARY KEY (run_id, path)
	);
	`,
}

// CurrentSchemaVersion is the schema version after every migration ran.
var CurrentSchemaVersion = len(migrations)

// Init opens (creating if needed) baseDir/rnupgrade.db in WAL mode with
// foreign keys on, creates the Subdirs, and migrates the schema.
func Init(baseDir string) (*sql.DB, error) {
	if err := makePrivateDir(baseDir); err != nil {
		return nil, err
	}
	for _, sub := range Subdirs {
		if err := makePrivateDir(filepath.Join(baseDir, sub)); err != nil {
			return nil, err
		}
	}

	dbPath := filepath.Join(baseDir, "rnupgrade.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := checkJournalMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0o600)
	return db, nil
}

// makePrivateDir creates dir readable by the owner only. The chmod is
// best-effort for directories that already existed.
func makePrivateDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	_ = os.Chmod(dir, 0o700)
	return nil
}

// ConfigurePool applies the pool limits set in cfg; zero leaves the
// driver default.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs each pending migration in its own transaction.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	for v := version; v < CurrentSchemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}

func checkJournalMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("read journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL journal mode, got %s", mode)
	}
	return nil
}

// GetUserVersion returns the schema version stored in user_version.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion overwrites user_version.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
