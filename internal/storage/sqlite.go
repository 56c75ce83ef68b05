// Package storage persists journal content in SQLite and keeps a JSONL
// ledger of import outcomes.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/bepress/internal/journal"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that require an existing row.
var ErrNotFound = errors.New("not found")

// timeLayout is the layout used for every stored timestamp.
const timeLayout = "2006-01-02 15:04:05"

// DB wraps a SQLite database connection.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	// Cascading deletes of a submission's dependents rely on foreign keys.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// SetClock overrides the clock used for modification stamps. Useful for testing.
func (d *DB) SetClock(now func() time.Time) {
	d.now = now
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS journals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			primary_locale TEXT NOT NULL,
			name_json TEXT NOT NULL,
			license_json TEXT
		);

		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS user_groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			journal_id INTEGER NOT NULL REFERENCES journals(id),
			role_id INTEGER NOT NULL,
			name_json TEXT NOT NULL,
			abbrev TEXT,
			stages_json TEXT,
			show_title INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS genres (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			journal_id INTEGER NOT NULL REFERENCES journals(id),
			entry_key TEXT NOT NULL,
			UNIQUE (journal_id, entry_key)
		);

		CREATE TABLE IF NOT EXISTS issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			journal_id INTEGER NOT NULL REFERENCES journals(id),
			volume INTEGER,
			number INTEGER,
			year INTEGER,
			title_json TEXT,
			date_published TEXT,
			published INTEGER NOT NULL DEFAULT 0,
			is_current INTEGER NOT NULL DEFAULT 0,
			access_status INTEGER,
			show_volume INTEGER NOT NULL DEFAULT 0,
			show_number INTEGER NOT NULL DEFAULT 0,
			show_year INTEGER NOT NULL DEFAULT 0,
			show_title INTEGER NOT NULL DEFAULT 0,
			last_modified TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_issues_number ON issues(journal_id, volume, number);

		CREATE TABLE IF NOT EXISTS sections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			journal_id INTEGER NOT NULL REFERENCES journals(id),
			title_json TEXT NOT NULL,
			abbrev_json TEXT,
			policy_json TEXT,
			abstracts_not_required INTEGER NOT NULL DEFAULT 0,
			meta_indexed INTEGER NOT NULL DEFAULT 0,
			meta_reviewed INTEGER NOT NULL DEFAULT 0,
			editor_restricted INTEGER NOT NULL DEFAULT 0,
			hide_title INTEGER NOT NULL DEFAULT 0,
			hide_author INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			context_id INTEGER NOT NULL REFERENCES journals(id),
			locale TEXT,
			status INTEGER NOT NULL,
			stage_id INTEGER NOT NULL,
			submission_progress INTEGER NOT NULL DEFAULT 0,
			date_submitted TEXT,
			date_last_activity TEXT,
			last_modified TEXT,
			current_publication_id INTEGER
		);

		CREATE TABLE IF NOT EXISTS publications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submission_id INTEGER NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
			section_id INTEGER REFERENCES sections(id),
			issue_id INTEGER,
			version INTEGER NOT NULL,
			status INTEGER NOT NULL,
			languages_json TEXT,
			title_json TEXT NOT NULL,
			abstract_json TEXT,
			pages TEXT,
			copyright_holder_json TEXT,
			copyright_year INTEGER,
			license_url TEXT,
			access_status INTEGER,
			seq INTEGER,
			date_published TEXT,
			doi TEXT,
			last_modified TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_publications_doi ON publications(doi) WHERE doi IS NOT NULL AND doi != '';

		CREATE TABLE IF NOT EXISTS publication_vocabs (
			publication_id INTEGER NOT NULL REFERENCES publications(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			locale TEXT NOT NULL,
			seq INTEGER NOT NULL,
			term TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_publication_vocabs ON publication_vocabs(publication_id, kind);

		CREATE TABLE IF NOT EXISTS authors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submission_id INTEGER NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
			publication_id INTEGER REFERENCES publications(id) ON DELETE CASCADE,
			given_name_json TEXT NOT NULL,
			family_name_json TEXT,
			preferred_public_name_json TEXT,
			affiliation_json TEXT,
			email TEXT NOT NULL,
			seq INTEGER NOT NULL,
			primary_contact INTEGER NOT NULL DEFAULT 0,
			include_in_browse INTEGER NOT NULL DEFAULT 1,
			user_group_id INTEGER
		);

		CREATE TABLE IF NOT EXISTS galleys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			publication_id INTEGER NOT NULL REFERENCES publications(id) ON DELETE CASCADE,
			locale TEXT,
			name_json TEXT,
			label TEXT,
			seq INTEGER,
			submission_file_id INTEGER
		);

		CREATE TABLE IF NOT EXISTS submission_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submission_id INTEGER NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
			file_id TEXT NOT NULL,
			genre_id INTEGER,
			file_stage INTEGER NOT NULL,
			uploader_user_id INTEGER,
			assoc_type INTEGER,
			assoc_id INTEGER,
			name_json TEXT,
			pages INTEGER,
			created_at TEXT,
			updated_at TEXT
		);

		CREATE TABLE IF NOT EXISTS stage_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submission_id INTEGER NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
			user_group_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			date_assigned TEXT
		);

		-- Full-text search index of imported submissions
		CREATE VIRTUAL TABLE IF NOT EXISTS submissions_fts USING fts5(
			submission_id UNINDEXED,
			title,
			abstract,
			authors_text,
			keywords_text,
			files_text
		);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableID converts an id to sql.NullInt64, treating zero as NULL.
func nullableID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(timeLayout), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(timeLayout, s.String, time.UTC)
}

// encodeText serializes a localized text field, storing NULL for empty maps.
func encodeText(t journal.Text) (sql.NullString, error) {
	if len(t) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeText(s sql.NullString) (journal.Text, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var t journal.Text
	if err := json.Unmarshal([]byte(s.String), &t); err != nil {
		return nil, err
	}
	return t, nil
}

// textEncoder accumulates the first encoding error over several fields.
type textEncoder struct {
	err error
}

func (e *textEncoder) text(t journal.Text) sql.NullString {
	if e.err != nil {
		return sql.NullString{}
	}
	s, err := encodeText(t)
	if err != nil {
		e.err = err
	}
	return s
}

// textDecoder accumulates the first decoding error over several fields.
type textDecoder struct {
	err error
}

func (d *textDecoder) text(s sql.NullString) journal.Text {
	if d.err != nil {
		return nil
	}
	t, err := decodeText(s)
	if err != nil {
		d.err = err
	}
	return t
}

func (d *textDecoder) time(s sql.NullString) time.Time {
	if d.err != nil {
		return time.Time{}
	}
	t, err := parseTime(s)
	if err != nil {
		d.err = err
	}
	return t
}

// insert executes an INSERT statement and returns the new row id.
func (d *DB) insert(query string, args ...interface{}) (int64, error) {
	res, err := d.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// execOne executes a statement that must affect exactly one row.
func (d *DB) execOne(query string, args ...interface{}) error {
	res, err := d.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// count returns the number of rows in a table.
func (d *DB) count(table string) (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}
