// Package importer materializes a bepress article record into a journal:
// it resolves the issue and section, builds the submission with its single
// publication, authors and galleys, and undoes the article on failure.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
	"github.com/matsen/bepress/internal/storage"
	"github.com/matsen/bepress/internal/xmltree"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// IssueRepository finds, creates and deletes issues.
type IssueRepository interface {
	FindPublishedIssue(journalID int64, volume, number int) (*journal.Issue, error)
	CreateIssue(is journal.Issue) (journal.Issue, error)
	DeleteIssue(id int64) error
}

// SectionRepository finds and creates sections.
type SectionRepository interface {
	FindSectionByTitle(title string, journalID int64, l locale.Locale) (*journal.Section, error)
	CreateSection(s journal.Section) (journal.Section, error)
}

// SubmissionRepository persists submissions and their workflow participants.
type SubmissionRepository interface {
	CreateSubmission(s journal.Submission) (journal.Submission, error)
	UpdateSubmission(s journal.Submission) (journal.Submission, error)
	DeleteSubmission(id int64) error
	CreateStageAssignment(a journal.StageAssignment) (journal.StageAssignment, error)
}

// PublicationRepository persists publications and their vocabularies.
type PublicationRepository interface {
	CreatePublication(p journal.Publication) (journal.Publication, error)
	UpdatePublication(p journal.Publication) (journal.Publication, error)
	SetPublicationDOI(publicationID int64, doi string) error
	InsertVocabulary(publicationID int64, kind string, terms locale.Map) error
}

// AuthorRepository persists authors.
type AuthorRepository interface {
	CreateAuthor(a journal.Author) (journal.Author, error)
}

// GalleyRepository persists galleys and their submission files.
type GalleyRepository interface {
	CreateGalley(g journal.Galley) (journal.Galley, error)
	UpdateGalley(g journal.Galley) (journal.Galley, error)
	CreateSubmissionFile(f journal.SubmissionFile) (journal.SubmissionFile, error)
}

// DirectoryRepository looks up the journal's user groups and genres.
type DirectoryRepository interface {
	GetUserGroupsByRole(journalID int64, roleID int) ([]journal.UserGroup, error)
	GetUserGroupByID(id int64) (*journal.UserGroup, error)
	GetGenreByKey(key string, journalID int64) (*journal.Genre, error)
}

// FileStore stores galley files.
type FileStore interface {
	Add(srcPath, key string) (string, error)
	Open(fileID string) (afero.File, int64, error)
	Remove(fileID string) error
}

// Indexer is notified after an article was imported.
type Indexer interface {
	SubmissionMetadataChanged(submissionID int64)
	SubmissionFilesChanged(submissionID int64)
	SubmissionChangesFinished() error
}

// Translator renders catalog messages.
type Translator interface {
	Translate(l locale.Locale, key string, params map[string]string) string
}

// Deps holds the collaborators of an Importer.
type Deps struct {
	Issues       IssueRepository
	Sections     SectionRepository
	Submissions  SubmissionRepository
	Publications PublicationRepository
	Authors      AuthorRepository
	Galleys      GalleyRepository
	Directory    DirectoryRepository
	Files        FileStore
	Indexer      Indexer
	Catalog      Translator
}

// DepsFromDB wires every repository of Deps to db.
func DepsFromDB(db *storage.DB, files FileStore, indexer Indexer, catalog Translator) Deps {
	return Deps{
		Issues:       db,
		Sections:     db,
		Submissions:  db,
		Publications: db,
		Authors:      db,
		Galleys:      db,
		Directory:    db,
		Files:        files,
		Indexer:      indexer,
		Catalog:      catalog,
	}
}

// Request is one article to import.
type Request struct {
	Journal      *journal.Journal
	User         *journal.User
	Editor       *journal.User
	Root         *xmltree.Node
	PDFPaths     []string
	Volume       string
	Number       string
	DefaultEmail string
	GenreKey     string // Defaults to DefaultGenreKey
}

// DefaultGenreKey is the genre assigned to galley files when a request names none.
const DefaultGenreKey = "SUBMISSION"

// Result holds what a successful import resolved and created.
type Result struct {
	Issue          journal.Issue            `json:"issue"`
	IssueCreated   bool                     `json:"issue_created"`
	Section        journal.Section          `json:"section"`
	SectionCreated bool                     `json:"section_created"`
	Submission     journal.Submission       `json:"submission"`
	Publication    journal.Publication      `json:"publication"`
	Authors        []journal.Author         `json:"authors"`
	Galleys        []journal.Galley         `json:"galleys"`
	Files          []journal.SubmissionFile `json:"files"`
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(imp *Importer) { imp.log = log }
}

// WithClock overrides the clock used for file timestamps. Useful for testing.
func WithClock(now func() time.Time) Option {
	return func(imp *Importer) { imp.now = now }
}

// Importer imports bepress article records.
type Importer struct {
	deps Deps
	log  logrus.FieldLogger
	now  func() time.Time
}

// New creates an Importer.
func New(deps Deps, opts ...Option) *Importer {
	imp := &Importer{
		deps: deps,
		log:  logrus.StandardLogger(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// errAborted marks a stage that recorded a fatal error entry.
var errAborted = errors.New("aborted")

// Import imports one article.
//
// On success it returns the result and no entries. When req lacks a required
// input it returns ErrPrecondition without touching any store. Any other
// failure undoes the created issue, submission and stored files, and returns
// the accumulated error entries with an error matching ErrImportFailed, or a
// *RollbackError if undoing failed.
func (imp *Importer) Import(ctx context.Context, req Request) (*Result, []ErrorEntry, error) {
	r := newRun(imp, req)

	if entries, ok := r.checkPreconditions(); !ok {
		r.log.Debug("Import preconditions not met")
		return nil, entries, ErrPrecondition
	}

	for _, stage := range []struct {
		name string
		fn   func() error
	}{
		{"issue", r.resolveIssue},
		{"section", r.resolveSection},
		{"submission", r.buildSubmission},
		{"galleys", r.attachGalleys},
	} {
		if err := ctx.Err(); err != nil {
			return r.abort(fmt.Errorf("before %s: %w", stage.name, err))
		}
		if err := stage.fn(); err != nil {
			return r.abort(err)
		}
		r.log.WithField("stage", stage.name).Debug("Stage complete")
	}

	r.notifyIndexer()

	r.log.WithFields(logrus.Fields{
		"issue":      r.result.Issue.ID,
		"section":    r.result.Section.ID,
		"submission": r.result.Submission.ID,
	}).Info("Imported article")
	return &r.result, nil, nil
}

// Describe renders entries through the importer's catalog in l.
func (imp *Importer) Describe(l locale.Locale, entries []ErrorEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		if imp.deps.Catalog == nil {
			out[i] = e.Key
			continue
		}
		out[i] = imp.deps.Catalog.Translate(l, e.Key, e.Params)
	}
	return out
}

func (r *run) notifyIndexer() {
	ix := r.imp.deps.Indexer
	if ix == nil {
		return
	}
	id := r.result.Submission.ID
	ix.SubmissionMetadataChanged(id)
	ix.SubmissionFilesChanged(id)
	if err := ix.SubmissionChangesFinished(); err != nil {
		r.log.WithError(err).Warn("Search index not updated")
	}
}
