package storage

import (
	"fmt"
	"strings"
)

// SearchDocument is the indexed text of one submission.
type SearchDocument struct {
	SubmissionID int64
	Title        string
	Abstract     string
	AuthorsText  string
	KeywordsText string
	FilesText    string
}

// SearchHit is a submission matched by a full-text query.
type SearchHit struct {
	SubmissionID int64  `json:"submission_id"`
	Title        string `json:"title"`
}

// UpsertSearchMetadata replaces the metadata columns of a submission's search
// entry, keeping any indexed file text.
func (d *DB) UpsertSearchMetadata(doc SearchDocument) error {
	files, err := d.searchFilesText(doc.SubmissionID)
	if err != nil {
		return err
	}
	doc.FilesText = files
	return d.replaceSearchDocument(doc)
}

// UpsertSearchFiles replaces the file text of a submission's search entry,
// keeping the indexed metadata.
func (d *DB) UpsertSearchFiles(submissionID int64, filesText string) error {
	var doc SearchDocument
	err := d.db.QueryRow(`
		SELECT title, abstract, authors_text, keywords_text
		FROM submissions_fts WHERE submission_id = ?
	`, submissionID).Scan(&doc.Title, &doc.Abstract, &doc.AuthorsText, &doc.KeywordsText)
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("reading search entry for submission %d: %w", submissionID, err)
	}
	doc.SubmissionID = submissionID
	doc.FilesText = filesText
	return d.replaceSearchDocument(doc)
}

func (d *DB) searchFilesText(submissionID int64) (string, error) {
	var files string
	err := d.db.QueryRow(`SELECT files_text FROM submissions_fts WHERE submission_id = ?`, submissionID).Scan(&files)
	if err != nil && !isNoRows(err) {
		return "", fmt.Errorf("reading search entry for submission %d: %w", submissionID, err)
	}
	return files, nil
}

func (d *DB) replaceSearchDocument(doc SearchDocument) error {
	if _, err := d.db.Exec(`DELETE FROM submissions_fts WHERE submission_id = ?`, doc.SubmissionID); err != nil {
		return fmt.Errorf("clearing search entry for submission %d: %w", doc.SubmissionID, err)
	}
	_, err := d.db.Exec(`
		INSERT INTO submissions_fts (submission_id, title, abstract, authors_text, keywords_text, files_text)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.SubmissionID, doc.Title, doc.Abstract, doc.AuthorsText, doc.KeywordsText, doc.FilesText)
	if err != nil {
		return fmt.Errorf("inserting search entry for submission %d: %w", doc.SubmissionID, err)
	}
	return nil
}

// SearchSubmissions performs a full-text search over indexed submissions.
func (d *DB) SearchSubmissions(query string, limit int) ([]SearchHit, error) {
	rows, err := d.db.Query(`
		SELECT submission_id, title
		FROM submissions_fts
		WHERE submissions_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, prepareFTSQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.SubmissionID, &h.Title); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
