package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
)

// CreateJournal inserts a journal and returns it with its assigned ID.
func (d *DB) CreateJournal(j journal.Journal) (journal.Journal, error) {
	name, err := encodeText(j.Name)
	if err != nil {
		return journal.Journal{}, fmt.Errorf("encoding journal name: %w", err)
	}
	license, err := json.Marshal(j.License)
	if err != nil {
		return journal.Journal{}, fmt.Errorf("encoding license policy: %w", err)
	}

	id, err := d.insert(`
		INSERT INTO journals (path, primary_locale, name_json, license_json)
		VALUES (?, ?, ?, ?)
	`, j.Path, string(j.PrimaryLocale), name, string(license))
	if err != nil {
		return journal.Journal{}, fmt.Errorf("inserting journal %s: %w", j.Path, err)
	}
	j.ID = id
	return j, nil
}

// GetJournalByPath retrieves a journal by its URL path. Returns nil if absent.
func (d *DB) GetJournalByPath(path string) (*journal.Journal, error) {
	row := d.db.QueryRow(`
		SELECT id, path, primary_locale, name_json, license_json
		FROM journals WHERE path = ?
	`, path)
	return scanJournal(row)
}

// GetJournalByID retrieves a journal by ID. Returns nil if absent.
func (d *DB) GetJournalByID(id int64) (*journal.Journal, error) {
	row := d.db.QueryRow(`
		SELECT id, path, primary_locale, name_json, license_json
		FROM journals WHERE id = ?
	`, id)
	return scanJournal(row)
}

func scanJournal(s scanner) (*journal.Journal, error) {
	var j journal.Journal
	var primary string
	var name, license sql.NullString
	if err := s.Scan(&j.ID, &j.Path, &primary, &name, &license); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	j.PrimaryLocale = locale.Locale(primary)

	var err error
	if j.Name, err = decodeText(name); err != nil {
		return nil, fmt.Errorf("parsing name JSON for journal %d: %w", j.ID, err)
	}
	if license.Valid && license.String != "" {
		if err := json.Unmarshal([]byte(license.String), &j.License); err != nil {
			return nil, fmt.Errorf("parsing license JSON for journal %d: %w", j.ID, err)
		}
	}
	return &j, nil
}

// CreateUser inserts a user and returns it with its assigned ID.
func (d *DB) CreateUser(u journal.User) (journal.User, error) {
	id, err := d.insert(`INSERT INTO users (username, email) VALUES (?, ?)`, u.Username, u.Email)
	if err != nil {
		return journal.User{}, fmt.Errorf("inserting user %s: %w", u.Username, err)
	}
	u.ID = id
	return u, nil
}

// GetUserByUsername retrieves a user by username. Returns nil if absent.
func (d *DB) GetUserByUsername(username string) (*journal.User, error) {
	var u journal.User
	err := d.db.QueryRow(`SELECT id, username, email FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateUserGroup inserts a user group and returns it with its assigned ID.
func (d *DB) CreateUserGroup(g journal.UserGroup) (journal.UserGroup, error) {
	name, err := encodeText(g.Name)
	if err != nil {
		return journal.UserGroup{}, fmt.Errorf("encoding group name: %w", err)
	}
	stages, err := json.Marshal(g.Stages)
	if err != nil {
		return journal.UserGroup{}, fmt.Errorf("encoding group stages: %w", err)
	}

	id, err := d.insert(`
		INSERT INTO user_groups (journal_id, role_id, name_json, abbrev, stages_json, show_title)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.JournalID, g.RoleID, name, nullableStringValue(g.Abbrev), string(stages), boolInt(g.ShowTitle))
	if err != nil {
		return journal.UserGroup{}, fmt.Errorf("inserting user group %s: %w", g.Abbrev, err)
	}
	g.ID = id
	return g, nil
}

const selectUserGroupFields = `id, journal_id, role_id, name_json, abbrev, stages_json, show_title`

// GetUserGroupsByRole returns the journal's groups holding roleID, ordered by ID.
func (d *DB) GetUserGroupsByRole(journalID int64, roleID int) ([]journal.UserGroup, error) {
	rows, err := d.db.Query(`
		SELECT `+selectUserGroupFields+`
		FROM user_groups
		WHERE journal_id = ? AND role_id = ?
		ORDER BY id
	`, journalID, roleID)
	if err != nil {
		return nil, fmt.Errorf("querying user groups: %w", err)
	}
	defer rows.Close()

	var groups []journal.UserGroup
	for rows.Next() {
		g, err := scanUserGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

// GetUserGroupByID retrieves a user group by ID. Returns nil if absent.
func (d *DB) GetUserGroupByID(id int64) (*journal.UserGroup, error) {
	row := d.db.QueryRow(`SELECT `+selectUserGroupFields+` FROM user_groups WHERE id = ?`, id)
	return scanUserGroup(row)
}

func scanUserGroup(s scanner) (*journal.UserGroup, error) {
	var g journal.UserGroup
	var name, abbrev, stages sql.NullString
	var showTitle int
	if err := s.Scan(&g.ID, &g.JournalID, &g.RoleID, &name, &abbrev, &stages, &showTitle); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	g.Abbrev = abbrev.String
	g.ShowTitle = showTitle != 0

	var err error
	if g.Name, err = decodeText(name); err != nil {
		return nil, fmt.Errorf("parsing name JSON for user group %d: %w", g.ID, err)
	}
	if stages.Valid && stages.String != "" {
		if err := json.Unmarshal([]byte(stages.String), &g.Stages); err != nil {
			return nil, fmt.Errorf("parsing stages JSON for user group %d: %w", g.ID, err)
		}
	}
	return &g, nil
}

// CreateGenre inserts a genre. Keys are stored upper-cased.
func (d *DB) CreateGenre(g journal.Genre) (journal.Genre, error) {
	g.Key = strings.ToUpper(g.Key)
	id, err := d.insert(`INSERT INTO genres (journal_id, entry_key) VALUES (?, ?)`, g.JournalID, g.Key)
	if err != nil {
		return journal.Genre{}, fmt.Errorf("inserting genre %s: %w", g.Key, err)
	}
	g.ID = id
	return g, nil
}

// GetGenreByKey retrieves a journal's genre by key. Returns nil if absent.
func (d *DB) GetGenreByKey(key string, journalID int64) (*journal.Genre, error) {
	var g journal.Genre
	err := d.db.QueryRow(`
		SELECT id, journal_id, entry_key FROM genres
		WHERE journal_id = ? AND entry_key = ?
	`, journalID, strings.ToUpper(key)).Scan(&g.ID, &g.JournalID, &g.Key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}
