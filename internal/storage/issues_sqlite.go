package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/bepress/internal/journal"
)

const selectIssueFields = `id, journal_id, volume, number, year, title_json,
	date_published, published, is_current, access_status,
	show_volume, show_number, show_year, show_title, last_modified`

// CreateIssue inserts an issue and returns it with its assigned ID.
func (d *DB) CreateIssue(is journal.Issue) (journal.Issue, error) {
	title, err := encodeText(is.Title)
	if err != nil {
		return journal.Issue{}, fmt.Errorf("encoding issue title: %w", err)
	}
	if is.LastModified.IsZero() {
		is.LastModified = d.now().UTC()
	}

	id, err := d.insert(`
		INSERT INTO issues (
			journal_id, volume, number, year, title_json,
			date_published, published, is_current, access_status,
			show_volume, show_number, show_year, show_title, last_modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		is.JournalID, is.Volume, is.Number, is.Year, title,
		formatTime(is.DatePublished), boolInt(is.Published), boolInt(is.Current), is.AccessStatus,
		boolInt(is.ShowVolume), boolInt(is.ShowNumber), boolInt(is.ShowYear), boolInt(is.ShowTitle),
		formatTime(is.LastModified),
	)
	if err != nil {
		return journal.Issue{}, fmt.Errorf("inserting issue: %w", err)
	}
	is.ID = id
	return is, nil
}

// FindPublishedIssue returns the first published issue of a journal with the
// given volume and number, or nil if none exists.
func (d *DB) FindPublishedIssue(journalID int64, volume, number int) (*journal.Issue, error) {
	row := d.db.QueryRow(`
		SELECT `+selectIssueFields+`
		FROM issues
		WHERE journal_id = ? AND volume = ? AND number = ? AND published = 1
		ORDER BY id
		LIMIT 1
	`, journalID, volume, number)
	return scanIssue(row)
}

// GetIssueByID retrieves an issue by ID. Returns nil if absent.
func (d *DB) GetIssueByID(id int64) (*journal.Issue, error) {
	row := d.db.QueryRow(`SELECT `+selectIssueFields+` FROM issues WHERE id = ?`, id)
	return scanIssue(row)
}

// ListIssues returns all issues of a journal ordered by volume and number.
func (d *DB) ListIssues(journalID int64) ([]journal.Issue, error) {
	rows, err := d.db.Query(`
		SELECT `+selectIssueFields+`
		FROM issues
		WHERE journal_id = ?
		ORDER BY volume, number, id
	`, journalID)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var issues []journal.Issue
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *is)
	}
	return issues, rows.Err()
}

// DeleteIssue removes an issue. Returns ErrNotFound if it does not exist.
func (d *DB) DeleteIssue(id int64) error {
	if err := d.execOne(`DELETE FROM issues WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting issue %d: %w", id, err)
	}
	return nil
}

// CountIssues returns the total number of issues.
func (d *DB) CountIssues() (int, error) {
	return d.count("issues")
}

func scanIssue(s scanner) (*journal.Issue, error) {
	var is journal.Issue
	var title, datePublished, lastModified sql.NullString
	var volume, number, year, accessStatus sql.NullInt64
	var published, current, showVolume, showNumber, showYear, showTitle int

	err := s.Scan(
		&is.ID, &is.JournalID, &volume, &number, &year, &title,
		&datePublished, &published, &current, &accessStatus,
		&showVolume, &showNumber, &showYear, &showTitle, &lastModified,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	is.Volume = int(volume.Int64)
	is.Number = int(number.Int64)
	is.Year = int(year.Int64)
	is.AccessStatus = int(accessStatus.Int64)
	is.Published = published != 0
	is.Current = current != 0
	is.ShowVolume = showVolume != 0
	is.ShowNumber = showNumber != 0
	is.ShowYear = showYear != 0
	is.ShowTitle = showTitle != 0

	var dec textDecoder
	is.Title = dec.text(title)
	is.DatePublished = dec.time(datePublished)
	is.LastModified = dec.time(lastModified)
	if dec.err != nil {
		return nil, fmt.Errorf("decoding issue %d: %w", is.ID, dec.err)
	}
	return &is, nil
}
