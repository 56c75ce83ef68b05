package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
)

const selectSectionFields = `id, journal_id, title_json, abbrev_json, policy_json,
	abstracts_not_required, meta_indexed, meta_reviewed,
	editor_restricted, hide_title, hide_author`

// CreateSection inserts a section and returns it with its assigned ID.
func (d *DB) CreateSection(s journal.Section) (journal.Section, error) {
	var enc textEncoder
	title := enc.text(s.Title)
	abbrev := enc.text(s.Abbrev)
	policy := enc.text(s.Policy)
	if enc.err != nil {
		return journal.Section{}, fmt.Errorf("encoding section: %w", enc.err)
	}

	id, err := d.insert(`
		INSERT INTO sections (
			journal_id, title_json, abbrev_json, policy_json,
			abstracts_not_required, meta_indexed, meta_reviewed,
			editor_restricted, hide_title, hide_author
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.JournalID, title, abbrev, policy,
		boolInt(s.AbstractsNotRequired), boolInt(s.MetaIndexed), boolInt(s.MetaReviewed),
		boolInt(s.EditorRestricted), boolInt(s.HideTitle), boolInt(s.HideAuthor),
	)
	if err != nil {
		return journal.Section{}, fmt.Errorf("inserting section: %w", err)
	}
	s.ID = id
	return s, nil
}

// FindSectionByTitle returns the journal's first section whose title in the
// given locale equals title, or nil if none matches.
func (d *DB) FindSectionByTitle(title string, journalID int64, l locale.Locale) (*journal.Section, error) {
	row := d.db.QueryRow(`
		SELECT `+selectSectionFields+`
		FROM sections
		WHERE journal_id = ? AND json_extract(title_json, '$."' || ? || '"') = ?
		ORDER BY id
		LIMIT 1
	`, journalID, string(l), title)
	return scanSection(row)
}

// ListSections returns all sections of a journal ordered by ID.
func (d *DB) ListSections(journalID int64) ([]journal.Section, error) {
	rows, err := d.db.Query(`
		SELECT `+selectSectionFields+`
		FROM sections
		WHERE journal_id = ?
		ORDER BY id
	`, journalID)
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	defer rows.Close()

	var sections []journal.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, *s)
	}
	return sections, rows.Err()
}

// CountSections returns the total number of sections.
func (d *DB) CountSections() (int, error) {
	return d.count("sections")
}

func scanSection(sc scanner) (*journal.Section, error) {
	var s journal.Section
	var title, abbrev, policy sql.NullString
	var absNotRequired, metaIndexed, metaReviewed, editorRestricted, hideTitle, hideAuthor int

	err := sc.Scan(
		&s.ID, &s.JournalID, &title, &abbrev, &policy,
		&absNotRequired, &metaIndexed, &metaReviewed,
		&editorRestricted, &hideTitle, &hideAuthor,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	s.AbstractsNotRequired = absNotRequired != 0
	s.MetaIndexed = metaIndexed != 0
	s.MetaReviewed = metaReviewed != 0
	s.EditorRestricted = editorRestricted != 0
	s.HideTitle = hideTitle != 0
	s.HideAuthor = hideAuthor != 0

	var dec textDecoder
	s.Title = dec.text(title)
	s.Abbrev = dec.text(abbrev)
	s.Policy = dec.text(policy)
	if dec.err != nil {
		return nil, fmt.Errorf("decoding section %d: %w", s.ID, dec.err)
	}
	return &s, nil
}
