package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
)

// CreateGalley inserts a galley and returns it with its assigned ID.
func (d *DB) CreateGalley(g journal.Galley) (journal.Galley, error) {
	name, err := encodeText(g.Name)
	if err != nil {
		return journal.Galley{}, fmt.Errorf("encoding galley name: %w", err)
	}
	id, err := d.insert(`
		INSERT INTO galleys (publication_id, locale, name_json, label, seq, submission_file_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.PublicationID, string(g.Locale), name, g.Label, g.Seq, nullableID(g.SubmissionFileID))
	if err != nil {
		return journal.Galley{}, fmt.Errorf("inserting galley: %w", err)
	}
	g.ID = id
	return g, nil
}

// UpdateGalley overwrites a stored galley with g.
func (d *DB) UpdateGalley(g journal.Galley) (journal.Galley, error) {
	name, err := encodeText(g.Name)
	if err != nil {
		return journal.Galley{}, fmt.Errorf("encoding galley name: %w", err)
	}
	err = d.execOne(`
		UPDATE galleys SET publication_id = ?, locale = ?, name_json = ?, label = ?, seq = ?, submission_file_id = ?
		WHERE id = ?
	`, g.PublicationID, string(g.Locale), name, g.Label, g.Seq, nullableID(g.SubmissionFileID), g.ID)
	if err != nil {
		return journal.Galley{}, fmt.Errorf("updating galley %d: %w", g.ID, err)
	}
	return g, nil
}

// GetGalleysByPublication returns a publication's galleys ordered by ID.
func (d *DB) GetGalleysByPublication(publicationID int64) ([]journal.Galley, error) {
	rows, err := d.db.Query(`
		SELECT id, publication_id, locale, name_json, label, seq, submission_file_id
		FROM galleys
		WHERE publication_id = ?
		ORDER BY id
	`, publicationID)
	if err != nil {
		return nil, fmt.Errorf("querying galleys: %w", err)
	}
	defer rows.Close()

	var galleys []journal.Galley
	for rows.Next() {
		var g journal.Galley
		var loc, name, label sql.NullString
		var seq, fileID sql.NullInt64
		if err := rows.Scan(&g.ID, &g.PublicationID, &loc, &name, &label, &seq, &fileID); err != nil {
			return nil, err
		}
		g.Locale = locale.Locale(loc.String)
		g.Label = label.String
		g.Seq = int(seq.Int64)
		g.SubmissionFileID = fileID.Int64
		if g.Name, err = decodeText(name); err != nil {
			return nil, fmt.Errorf("parsing name JSON for galley %d: %w", g.ID, err)
		}
		galleys = append(galleys, g)
	}
	return galleys, rows.Err()
}

// CountGalleys returns the total number of galleys.
func (d *DB) CountGalleys() (int, error) {
	return d.count("galleys")
}

// CreateSubmissionFile inserts a submission file record and returns it with its assigned ID.
func (d *DB) CreateSubmissionFile(f journal.SubmissionFile) (journal.SubmissionFile, error) {
	name, err := encodeText(f.Name)
	if err != nil {
		return journal.SubmissionFile{}, fmt.Errorf("encoding file name: %w", err)
	}
	id, err := d.insert(`
		INSERT INTO submission_files (
			submission_id, file_id, genre_id, file_stage, uploader_user_id,
			assoc_type, assoc_id, name_json, pages, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.SubmissionID, f.FileID, nullableID(f.GenreID), f.FileStage, nullableID(f.UploaderUserID),
		f.AssocType, nullableID(f.AssocID), name, f.Pages, formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return journal.SubmissionFile{}, fmt.Errorf("inserting submission file %s: %w", f.FileID, err)
	}
	f.ID = id
	return f, nil
}

// GetSubmissionFiles returns a submission's files ordered by ID.
func (d *DB) GetSubmissionFiles(submissionID int64) ([]journal.SubmissionFile, error) {
	rows, err := d.db.Query(`
		SELECT id, submission_id, file_id, genre_id, file_stage, uploader_user_id,
			assoc_type, assoc_id, name_json, pages, created_at, updated_at
		FROM submission_files
		WHERE submission_id = ?
		ORDER BY id
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("querying submission files: %w", err)
	}
	defer rows.Close()

	var files []journal.SubmissionFile
	for rows.Next() {
		var f journal.SubmissionFile
		var genreID, uploader, assocType, assocID, pages sql.NullInt64
		var name, created, updated sql.NullString
		err := rows.Scan(
			&f.ID, &f.SubmissionID, &f.FileID, &genreID, &f.FileStage, &uploader,
			&assocType, &assocID, &name, &pages, &created, &updated,
		)
		if err != nil {
			return nil, err
		}
		f.GenreID = genreID.Int64
		f.UploaderUserID = uploader.Int64
		f.AssocType = int(assocType.Int64)
		f.AssocID = assocID.Int64
		f.Pages = int(pages.Int64)

		var dec textDecoder
		f.Name = dec.text(name)
		f.CreatedAt = dec.time(created)
		f.UpdatedAt = dec.time(updated)
		if dec.err != nil {
			return nil, fmt.Errorf("decoding submission file %d: %w", f.ID, dec.err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
