package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
)

const selectPublicationFields = `id, submission_id, section_id, issue_id, version, status,
	languages_json, title_json, abstract_json, pages,
	copyright_holder_json, copyright_year, license_url, access_status,
	seq, date_published, doi, last_modified`

// CreatePublication inserts a publication and its vocabularies and returns
// it with its assigned ID.
func (d *DB) CreatePublication(p journal.Publication) (journal.Publication, error) {
	if p.LastModified.IsZero() {
		p.LastModified = d.now().UTC()
	}
	args, err := publicationArgs(p)
	if err != nil {
		return journal.Publication{}, err
	}

	id, err := d.insert(`
		INSERT INTO publications (
			submission_id, section_id, issue_id, version, status,
			languages_json, title_json, abstract_json, pages,
			copyright_holder_json, copyright_year, license_url, access_status,
			seq, date_published, doi, last_modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return journal.Publication{}, fmt.Errorf("inserting publication: %w", err)
	}
	p.ID = id

	if err := d.replaceVocabularies(p); err != nil {
		return journal.Publication{}, err
	}
	return p, nil
}

// UpdatePublication overwrites a stored publication with p. The stored
// keywords, subjects and disciplines are replaced by p's collections, so
// vocabulary inserted separately must be added after this call.
func (d *DB) UpdatePublication(p journal.Publication) (journal.Publication, error) {
	p.LastModified = d.now().UTC()
	args, err := publicationArgs(p)
	if err != nil {
		return journal.Publication{}, err
	}
	args = append(args, p.ID)

	err = d.execOne(`
		UPDATE publications SET
			submission_id = ?, section_id = ?, issue_id = ?, version = ?, status = ?,
			languages_json = ?, title_json = ?, abstract_json = ?, pages = ?,
			copyright_holder_json = ?, copyright_year = ?, license_url = ?, access_status = ?,
			seq = ?, date_published = ?, doi = ?, last_modified = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return journal.Publication{}, fmt.Errorf("updating publication %d: %w", p.ID, err)
	}

	if err := d.replaceVocabularies(p); err != nil {
		return journal.Publication{}, err
	}
	return p, nil
}

func publicationArgs(p journal.Publication) ([]interface{}, error) {
	var enc textEncoder
	title := enc.text(p.Title)
	abstract := enc.text(p.Abstract)
	holder := enc.text(p.CopyrightHolder)
	if enc.err != nil {
		return nil, fmt.Errorf("encoding publication: %w", enc.err)
	}
	languages, err := json.Marshal(p.Languages)
	if err != nil {
		return nil, fmt.Errorf("encoding publication languages: %w", err)
	}

	var year sql.NullInt64
	if p.CopyrightYear != 0 {
		year = sql.NullInt64{Int64: int64(p.CopyrightYear), Valid: true}
	}

	return []interface{}{
		p.SubmissionID, nullableID(p.SectionID), nullableID(p.IssueID), p.Version, p.Status,
		string(languages), title, abstract, nullableStringValue(p.Pages),
		holder, year, nullableStringValue(p.LicenseURL), p.AccessStatus,
		p.Seq, formatTime(p.DatePublished), nullableStringValue(p.DOI), formatTime(p.LastModified),
	}, nil
}

// GetPublicationByID retrieves a publication with its vocabularies. Returns nil if absent.
func (d *DB) GetPublicationByID(id int64) (*journal.Publication, error) {
	row := d.db.QueryRow(`SELECT `+selectPublicationFields+` FROM publications WHERE id = ?`, id)
	p, err := scanPublication(row)
	if err != nil || p == nil {
		return p, err
	}

	if p.Keywords, err = d.GetVocabulary(p.ID, journal.VocabKeyword); err != nil {
		return nil, err
	}
	if p.Subjects, err = d.GetVocabulary(p.ID, journal.VocabSubject); err != nil {
		return nil, err
	}
	if p.Disciplines, err = d.GetVocabulary(p.ID, journal.VocabDiscipline); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPublicationDOI assigns a DOI to a publication.
func (d *DB) SetPublicationDOI(publicationID int64, doi string) error {
	if err := d.execOne(`UPDATE publications SET doi = ? WHERE id = ?`, nullableStringValue(doi), publicationID); err != nil {
		return fmt.Errorf("setting doi on publication %d: %w", publicationID, err)
	}
	return nil
}

// FindPublicationsByDOI returns the IDs of publications carrying doi.
func (d *DB) FindPublicationsByDOI(doi string) ([]int64, error) {
	rows, err := d.db.Query(`SELECT id FROM publications WHERE doi = ? ORDER BY id`, doi)
	if err != nil {
		return nil, fmt.Errorf("querying publications by doi: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountPublications returns the total number of publications.
func (d *DB) CountPublications() (int, error) {
	return d.count("publications")
}

func scanPublication(s scanner) (*journal.Publication, error) {
	var p journal.Publication
	var sectionID, issueID, year, seq, accessStatus sql.NullInt64
	var languages, title, abstract, pages, holder, license, datePublished, doi, lastModified sql.NullString

	err := s.Scan(
		&p.ID, &p.SubmissionID, &sectionID, &issueID, &p.Version, &p.Status,
		&languages, &title, &abstract, &pages,
		&holder, &year, &license, &accessStatus,
		&seq, &datePublished, &doi, &lastModified,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.SectionID = sectionID.Int64
	p.IssueID = issueID.Int64
	p.CopyrightYear = int(year.Int64)
	p.Seq = seq.Int64
	p.AccessStatus = int(accessStatus.Int64)
	p.Pages = pages.String
	p.LicenseURL = license.String
	p.DOI = doi.String

	if languages.Valid && languages.String != "" {
		if err := json.Unmarshal([]byte(languages.String), &p.Languages); err != nil {
			return nil, fmt.Errorf("parsing languages JSON for publication %d: %w", p.ID, err)
		}
	}

	var dec textDecoder
	p.Title = dec.text(title)
	p.Abstract = dec.text(abstract)
	p.CopyrightHolder = dec.text(holder)
	p.DatePublished = dec.time(datePublished)
	p.LastModified = dec.time(lastModified)
	if dec.err != nil {
		return nil, fmt.Errorf("decoding publication %d: %w", p.ID, dec.err)
	}
	return &p, nil
}

// replaceVocabularies rewrites all vocabularies of p from its collections.
func (d *DB) replaceVocabularies(p journal.Publication) error {
	if _, err := d.db.Exec(`DELETE FROM publication_vocabs WHERE publication_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clearing vocabularies of publication %d: %w", p.ID, err)
	}
	for kind, terms := range map[string]locale.Map{
		journal.VocabKeyword:    p.Keywords,
		journal.VocabSubject:    p.Subjects,
		journal.VocabDiscipline: p.Disciplines,
	} {
		if err := d.InsertVocabulary(p.ID, kind, terms); err != nil {
			return err
		}
	}
	return nil
}

// InsertVocabulary appends per-locale terms of one vocabulary kind to a publication.
func (d *DB) InsertVocabulary(publicationID int64, kind string, terms locale.Map) error {
	if terms.IsEmpty() {
		return nil
	}

	var start int
	err := d.db.QueryRow(`
		SELECT COALESCE(MAX(seq), 0) FROM publication_vocabs
		WHERE publication_id = ? AND kind = ?
	`, publicationID, kind).Scan(&start)
	if err != nil {
		return fmt.Errorf("reading %s sequence: %w", kind, err)
	}

	stmt, err := d.db.Prepare(`
		INSERT INTO publication_vocabs (publication_id, kind, locale, seq, term)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", kind, err)
	}
	defer stmt.Close()

	seq := start
	for _, l := range terms.Locales() {
		for _, term := range terms.Get(l) {
			seq++
			if _, err := stmt.Exec(publicationID, kind, string(l), seq, term); err != nil {
				return fmt.Errorf("inserting %s %q: %w", kind, term, err)
			}
		}
	}
	return nil
}

// GetVocabulary returns a publication's terms of one kind grouped by locale.
func (d *DB) GetVocabulary(publicationID int64, kind string) (locale.Map, error) {
	rows, err := d.db.Query(`
		SELECT locale, term FROM publication_vocabs
		WHERE publication_id = ? AND kind = ?
		ORDER BY seq
	`, publicationID, kind)
	if err != nil {
		return locale.Map{}, fmt.Errorf("querying %s vocabulary: %w", kind, err)
	}
	defer rows.Close()

	m := locale.NewMap()
	for rows.Next() {
		var l, term string
		if err := rows.Scan(&l, &term); err != nil {
			return locale.Map{}, err
		}
		m.Add(locale.Locale(l), term)
	}
	return m, rows.Err()
}
