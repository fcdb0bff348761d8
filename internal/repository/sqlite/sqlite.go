// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and the
// single-file database travels with the desktop install.
//
// WHY sqlx ON TOP OF database/sql?
// sqlx keeps the database/sql model (pool, Tx, Rows) but scans rows straight
// into tagged structs (Get/Select) and binds structs to :named parameters.
// Every query below is still plain, parameterised SQL.
//
// SCHEMA COMPATIBILITY:
// Table and column names are those of the original desktop database
// (project, log, attachment, project_id, log.timestamp, ...). Opening an
// existing projects.db adopts it in place: missing tables are created and
// columns introduced later are added, without touching existing rows.
package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/proman/internal/apperror"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// schemaVersion is written to PRAGMA user_version once InitializeSchema has
// brought a database up to date.
//
//	0 - legacy file (project/log/attachment without scope columns) or new file
//	1 - thumbnail_path, attachment scope columns and lookup indexes present
const schemaVersion = 1

// busyTimeoutMillis is how long a statement waits on a locked database file.
const busyTimeoutMillis = 5000

// DB wraps the sqlx connection pool. Each entity has its own repository view
// (Projects, Logs, Attachments) sharing the same pool.
type DB struct {
	conn *sqlx.DB
}

// New opens (or creates) the database at path and initialises its schema.
//
// dbPath examples:
//   - "data/projects.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database, lost on Close
//
// CONNECTION MODEL:
// database/sql hands out a connection per call and takes it back when the
// call returns (or fails). The pool is capped at one open connection: SQLite
// has a single writer, and an in-memory database only exists on the
// connection that created it.
func New(dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	// Ping verifies the connection actually works, so a bad path or missing
	// permission surfaces here rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.InitializeSchema(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// dsn builds the modernc connection string. Pragmas given as _pragma options
// are applied to every connection the pool opens, not just the first one.
func dsn(dbPath string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMillis),
	}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	return "file:" + escapePath(dbPath) + "?" + strings.Join(pragmas, "&")
}

// escapePath percent-encodes each segment of a filesystem path for use in a
// file: URI. Without it a '?' or '#' in the name would end the path early and
// SQLite would quietly open a different file.
func escapePath(dbPath string) string {
	segments := strings.Split(filepath.ToSlash(dbPath), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Projects returns the project repository.
func (db *DB) Projects() *ProjectDB { return &ProjectDB{conn: db.conn} }

// Logs returns the log entry repository.
func (db *DB) Logs() *LogDB { return &LogDB{conn: db.conn} }

// Attachments returns the attachment repository.
func (db *DB) Attachments() *AttachmentDB { return &AttachmentDB{conn: db.conn} }

// InitializeSchema makes sure the three tables, their relationships and the
// lookup indexes exist. It is idempotent and runs on every New.
func (db *DB) InitializeSchema(ctx context.Context) error {
	// Base tables, exactly as the first desktop release created them plus the
	// later columns. CREATE TABLE IF NOT EXISTS leaves existing files alone.
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS project (
			project_id     INTEGER PRIMARY KEY,
			name           TEXT NOT NULL,
			priority       INTEGER NOT NULL,
			due_date       TEXT,
			thumbnail_path TEXT
		);
		CREATE TABLE IF NOT EXISTS log (
			log_id     INTEGER PRIMARY KEY,
			project_id INTEGER,
			timestamp  TEXT,
			content    TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES project(project_id)
		);
		CREATE TABLE IF NOT EXISTS attachment (
			attachment_id INTEGER PRIMARY KEY,
			log_id        INTEGER,
			project_id    INTEGER REFERENCES project(project_id),
			file_path     TEXT NOT NULL,
			is_global     INTEGER NOT NULL DEFAULT 0,
			is_thumbnail  INTEGER,
			FOREIGN KEY(log_id) REFERENCES log(log_id)
		);
	`)
	if err != nil {
		return apperror.Storage("sqlite: creating tables", err)
	}

	// Columns added after the first release. Legacy files get them here.
	columns := []struct{ table, column, definition string }{
		{"project", "thumbnail_path", "TEXT"},
		{"attachment", "project_id", "INTEGER REFERENCES project(project_id)"},
		{"attachment", "is_global", "INTEGER NOT NULL DEFAULT 0"},
	}
	for _, c := range columns {
		if err := db.addColumnIfNotExists(ctx, c.table, c.column, c.definition); err != nil {
			return apperror.Storage(fmt.Sprintf("sqlite: adding %s.%s", c.table, c.column), err)
		}
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_log_project_timestamp ON log(project_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_attachment_log ON attachment(log_id);
		CREATE INDEX IF NOT EXISTS idx_attachment_project ON attachment(project_id);
	`)
	if err != nil {
		return apperror.Storage("sqlite: creating indexes", err)
	}

	if _, err := db.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return apperror.Storage("sqlite: setting user_version", err)
	}

	return nil
}

// SchemaVersion reports PRAGMA user_version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := db.conn.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return 0, apperror.Storage("sqlite: reading user_version", err)
	}
	return version, nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, so it is safe to run on every start.
func (db *DB) addColumnIfNotExists(ctx context.Context, table, column, definition string) error {
	var count int
	err := db.conn.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
