package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/bepress/internal/journal"
)

const selectAuthorFields = `id, submission_id, publication_id,
	given_name_json, family_name_json, preferred_public_name_json, affiliation_json,
	email, seq, primary_contact, include_in_browse, user_group_id`

// CreateAuthor inserts an author and returns it with its assigned ID.
func (d *DB) CreateAuthor(a journal.Author) (journal.Author, error) {
	var enc textEncoder
	given := enc.text(a.GivenName)
	family := enc.text(a.FamilyName)
	preferred := enc.text(a.PreferredPublicName)
	affiliation := enc.text(a.Affiliation)
	if enc.err != nil {
		return journal.Author{}, fmt.Errorf("encoding author: %w", enc.err)
	}
	if !given.Valid {
		given = sql.NullString{String: "{}", Valid: true}
	}

	id, err := d.insert(`
		INSERT INTO authors (
			submission_id, publication_id,
			given_name_json, family_name_json, preferred_public_name_json, affiliation_json,
			email, seq, primary_contact, include_in_browse, user_group_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.SubmissionID, nullableID(a.PublicationID),
		given, family, preferred, affiliation,
		a.Email, a.Seq, boolInt(a.PrimaryContact), boolInt(a.IncludeInBrowse), nullableID(a.UserGroupID),
	)
	if err != nil {
		return journal.Author{}, fmt.Errorf("inserting author %d: %w", a.Seq, err)
	}
	a.ID = id
	return a, nil
}

// GetAuthorsByPublication returns a publication's authors in sequence order.
func (d *DB) GetAuthorsByPublication(publicationID int64) ([]journal.Author, error) {
	return d.queryAuthors(`
		SELECT `+selectAuthorFields+`
		FROM authors
		WHERE publication_id = ?
		ORDER BY seq, id
	`, publicationID)
}

// GetAuthorsBySubmission returns a submission's authors in sequence order.
func (d *DB) GetAuthorsBySubmission(submissionID int64) ([]journal.Author, error) {
	return d.queryAuthors(`
		SELECT `+selectAuthorFields+`
		FROM authors
		WHERE submission_id = ?
		ORDER BY seq, id
	`, submissionID)
}

// CountAuthors returns the total number of authors.
func (d *DB) CountAuthors() (int, error) {
	return d.count("authors")
}

func (d *DB) queryAuthors(query string, args ...interface{}) ([]journal.Author, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying authors: %w", err)
	}
	defer rows.Close()

	var authors []journal.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, *a)
	}
	return authors, rows.Err()
}

func scanAuthor(s scanner) (*journal.Author, error) {
	var a journal.Author
	var publicationID, userGroupID sql.NullInt64
	var given, family, preferred, affiliation sql.NullString
	var primary, browse int

	err := s.Scan(
		&a.ID, &a.SubmissionID, &publicationID,
		&given, &family, &preferred, &affiliation,
		&a.Email, &a.Seq, &primary, &browse, &userGroupID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	a.PublicationID = publicationID.Int64
	a.UserGroupID = userGroupID.Int64
	a.PrimaryContact = primary != 0
	a.IncludeInBrowse = browse != 0

	var dec textDecoder
	a.GivenName = dec.text(given)
	a.FamilyName = dec.text(family)
	a.PreferredPublicName = dec.text(preferred)
	a.Affiliation = dec.text(affiliation)
	if dec.err != nil {
		return nil, fmt.Errorf("decoding author %d: %w", a.ID, dec.err)
	}
	return &a, nil
}
