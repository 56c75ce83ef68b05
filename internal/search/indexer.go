// Package search maintains the full-text index of imported submissions.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
	"github.com/matsen/bepress/internal/pdf"
	"github.com/matsen/bepress/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// maxIndexedPages bounds how much of each galley is read into the index.
const maxIndexedPages = 20

// Store is the persistence the indexer reads from and writes to.
type Store interface {
	GetSubmissionByID(id int64) (*journal.Submission, error)
	GetPublicationByID(id int64) (*journal.Publication, error)
	GetAuthorsByPublication(publicationID int64) ([]journal.Author, error)
	GetSubmissionFiles(submissionID int64) ([]journal.SubmissionFile, error)
	UpsertSearchMetadata(doc storage.SearchDocument) error
	UpsertSearchFiles(submissionID int64, filesText string) error
}

// Files opens stored submission files.
type Files interface {
	Open(fileID string) (afero.File, int64, error)
}

// Indexer collects change notifications and writes the index when changes
// are finished.
type Indexer struct {
	store Store
	files Files
	log   logrus.FieldLogger

	metadata map[int64]bool
	content  map[int64]bool
}

// NewIndexer creates an indexer. files may be nil, in which case file text is
// not indexed.
func NewIndexer(store Store, files Files, log logrus.FieldLogger) *Indexer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Indexer{
		store:    store,
		files:    files,
		log:      log,
		metadata: make(map[int64]bool),
		content:  make(map[int64]bool),
	}
}

// SubmissionMetadataChanged marks the submission's metadata for reindexing.
func (ix *Indexer) SubmissionMetadataChanged(submissionID int64) {
	ix.metadata[submissionID] = true
}

// SubmissionFilesChanged marks the submission's files for reindexing.
func (ix *Indexer) SubmissionFilesChanged(submissionID int64) {
	ix.content[submissionID] = true
}

// SubmissionChangesFinished writes every pending change to the index.
func (ix *Indexer) SubmissionChangesFinished() error {
	ix.log.WithField("submissions", ix.Pending()).Debug("Writing search index")
	for _, id := range sortedIDs(ix.metadata) {
		if err := ix.indexMetadata(id); err != nil {
			return err
		}
		delete(ix.metadata, id)
	}
	for _, id := range sortedIDs(ix.content) {
		if err := ix.indexFiles(id); err != nil {
			return err
		}
		delete(ix.content, id)
	}
	return nil
}

// Pending reports how many submissions await indexing.
func (ix *Indexer) Pending() int {
	ids := make(map[int64]bool, len(ix.metadata)+len(ix.content))
	for id := range ix.metadata {
		ids[id] = true
	}
	for id := range ix.content {
		ids[id] = true
	}
	return len(ids)
}

func (ix *Indexer) indexMetadata(submissionID int64) error {
	sub, err := ix.store.GetSubmissionByID(submissionID)
	if err != nil {
		return fmt.Errorf("loading submission %d: %w", submissionID, err)
	}
	if sub == nil || sub.CurrentPublicationID == 0 {
		ix.log.WithField("submission", submissionID).Debug("Nothing to index")
		return nil
	}
	pub, err := ix.store.GetPublicationByID(sub.CurrentPublicationID)
	if err != nil {
		return fmt.Errorf("loading publication %d: %w", sub.CurrentPublicationID, err)
	}
	if pub == nil {
		return nil
	}
	authors, err := ix.store.GetAuthorsByPublication(pub.ID)
	if err != nil {
		return fmt.Errorf("loading authors of publication %d: %w", pub.ID, err)
	}

	doc := storage.SearchDocument{
		SubmissionID: submissionID,
		Title:        joinText(pub.Title),
		Abstract:     joinText(pub.Abstract),
	}
	var names []string
	for _, a := range authors {
		seen := make(map[string]bool)
		for _, l := range sortedKeys(a.GivenName) {
			if n := a.FullName(locale.Locale(l)); n != "" && !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	doc.AuthorsText = strings.Join(names, " ")
	doc.KeywordsText = strings.Join(append(append(terms(pub.Keywords), terms(pub.Subjects)...), terms(pub.Disciplines)...), " ")

	if err := ix.store.UpsertSearchMetadata(doc); err != nil {
		return err
	}
	ix.log.WithField("submission", submissionID).Debug("Indexed metadata")
	return nil
}

func (ix *Indexer) indexFiles(submissionID int64) error {
	if ix.files == nil {
		return nil
	}
	files, err := ix.store.GetSubmissionFiles(submissionID)
	if err != nil {
		return fmt.Errorf("loading files of submission %d: %w", submissionID, err)
	}

	var texts []string
	for _, sf := range files {
		text, err := ix.fileText(sf.FileID)
		if err != nil {
			ix.log.WithError(err).WithField("file", sf.FileID).Warn("Skipping unreadable file")
			continue
		}
		texts = append(texts, text)
	}

	if err := ix.store.UpsertSearchFiles(submissionID, strings.Join(texts, "\n")); err != nil {
		return err
	}
	ix.log.WithFields(logrus.Fields{"submission": submissionID, "files": len(texts)}).Debug("Indexed files")
	return nil
}

func (ix *Indexer) fileText(fileID string) (string, error) {
	f, size, err := ix.files.Open(fileID)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return pdf.ExtractText(f, size, maxIndexedPages)
}

// joinText joins the values of a localized field in locale order.
func joinText(t journal.Text) string {
	var parts []string
	seen := make(map[string]bool)
	for _, k := range sortedKeys(t) {
		if v := t[k]; v != "" && !seen[v] {
			seen[v] = true
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func sortedKeys(t journal.Text) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func terms(m locale.Map) []string {
	var out []string
	for _, l := range m.Locales() {
		out = append(out, m.Get(l)...)
	}
	return out
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
