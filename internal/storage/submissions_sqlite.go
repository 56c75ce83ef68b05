package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
)

const selectSubmissionFields = `id, context_id, locale, status, stage_id, submission_progress,
	date_submitted, date_last_activity, last_modified, current_publication_id`

// CreateSubmission inserts a submission and returns it with its assigned ID.
func (d *DB) CreateSubmission(s journal.Submission) (journal.Submission, error) {
	if s.LastModified.IsZero() {
		s.LastModified = d.now().UTC()
	}
	id, err := d.insert(`
		INSERT INTO submissions (
			context_id, locale, status, stage_id, submission_progress,
			date_submitted, date_last_activity, last_modified, current_publication_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ContextID, string(s.Locale), s.Status, s.StageID, s.SubmissionProgress,
		formatTime(s.DateSubmitted), formatTime(s.DateLastActivity), formatTime(s.LastModified),
		nullableID(s.CurrentPublicationID),
	)
	if err != nil {
		return journal.Submission{}, fmt.Errorf("inserting submission: %w", err)
	}
	s.ID = id
	return s, nil
}

// UpdateSubmission overwrites a stored submission with s.
func (d *DB) UpdateSubmission(s journal.Submission) (journal.Submission, error) {
	s.LastModified = d.now().UTC()
	err := d.execOne(`
		UPDATE submissions SET
			context_id = ?, locale = ?, status = ?, stage_id = ?, submission_progress = ?,
			date_submitted = ?, date_last_activity = ?, last_modified = ?, current_publication_id = ?
		WHERE id = ?
	`,
		s.ContextID, string(s.Locale), s.Status, s.StageID, s.SubmissionProgress,
		formatTime(s.DateSubmitted), formatTime(s.DateLastActivity), formatTime(s.LastModified),
		nullableID(s.CurrentPublicationID), s.ID,
	)
	if err != nil {
		return journal.Submission{}, fmt.Errorf("updating submission %d: %w", s.ID, err)
	}
	return s, nil
}

// GetSubmissionByID retrieves a submission by ID. Returns nil if absent.
func (d *DB) GetSubmissionByID(id int64) (*journal.Submission, error) {
	row := d.db.QueryRow(`SELECT `+selectSubmissionFields+` FROM submissions WHERE id = ?`, id)
	return scanSubmission(row)
}

// DeleteSubmission removes a submission together with its publications,
// authors, galleys, files, stage assignments and search index entry. Nothing
// is removed when the submission does not exist.
func (d *DB) DeleteSubmission(id int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting submission %d: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM submissions_fts WHERE submission_id = ?`, id); err != nil {
		return fmt.Errorf("deleting search entry for submission %d: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting submission %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting submission %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting submission %d: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deleting submission %d: %w", id, err)
	}
	return nil
}

// CountSubmissions returns the total number of submissions.
func (d *DB) CountSubmissions() (int, error) {
	return d.count("submissions")
}

func scanSubmission(s scanner) (*journal.Submission, error) {
	var sub journal.Submission
	var loc, submitted, lastActivity, lastModified sql.NullString
	var currentPub sql.NullInt64

	err := s.Scan(
		&sub.ID, &sub.ContextID, &loc, &sub.Status, &sub.StageID, &sub.SubmissionProgress,
		&submitted, &lastActivity, &lastModified, &currentPub,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	sub.Locale = locale.Locale(loc.String)
	sub.CurrentPublicationID = currentPub.Int64

	var dec textDecoder
	sub.DateSubmitted = dec.time(submitted)
	sub.DateLastActivity = dec.time(lastActivity)
	sub.LastModified = dec.time(lastModified)
	if dec.err != nil {
		return nil, fmt.Errorf("decoding submission %d: %w", sub.ID, dec.err)
	}
	return &sub, nil
}

// CreateStageAssignment records a user's participation in a submission.
func (d *DB) CreateStageAssignment(a journal.StageAssignment) (journal.StageAssignment, error) {
	if a.DateAssigned.IsZero() {
		a.DateAssigned = d.now().UTC()
	}
	id, err := d.insert(`
		INSERT INTO stage_assignments (submission_id, user_group_id, user_id, date_assigned)
		VALUES (?, ?, ?, ?)
	`, a.SubmissionID, a.UserGroupID, a.UserID, formatTime(a.DateAssigned))
	if err != nil {
		return journal.StageAssignment{}, fmt.Errorf("inserting stage assignment: %w", err)
	}
	a.ID = id
	return a, nil
}

// GetStageAssignments returns a submission's stage assignments.
func (d *DB) GetStageAssignments(submissionID int64) ([]journal.StageAssignment, error) {
	rows, err := d.db.Query(`
		SELECT id, submission_id, user_group_id, user_id, date_assigned
		FROM stage_assignments
		WHERE submission_id = ?
		ORDER BY id
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("querying stage assignments: %w", err)
	}
	defer rows.Close()

	var out []journal.StageAssignment
	for rows.Next() {
		var a journal.StageAssignment
		var assigned sql.NullString
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.UserGroupID, &a.UserID, &assigned); err != nil {
			return nil, err
		}
		if a.DateAssigned, err = parseTime(assigned); err != nil {
			return nil, fmt.Errorf("parsing date_assigned for %d: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
