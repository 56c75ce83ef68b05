package importer

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matsen/bepress/internal/filestore"
	"github.com/matsen/bepress/internal/i18n"
	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/storage"
	"github.com/matsen/bepress/internal/xmltree"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const defaultEmail = "editor@coastal.example.org"

// fixture is a seeded journal with an importer wired to real storage and an
// in-memory file area.
type fixture struct {
	db      *storage.DB
	journal journal.Journal
	user    journal.User
	editor  journal.User
	manager journal.UserGroup
	author  journal.UserGroup

	src     afero.Fs
	files   *recordingFiles
	indexer *recordingIndexer
	hook    *test.Hook
	log     *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetClock(func() time.Time { return fixedNow })

	f := &fixture{db: db, src: afero.NewMemMapFs(), indexer: &recordingIndexer{}}
	f.journal, f.manager, f.author = seedJournal(t, db, "jcs", []int{journal.StageProduction})

	if f.user, err = db.CreateUser(journal.User{Username: "importer", Email: "importer@coastal.example.org"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if f.editor, err = db.CreateUser(journal.User{Username: "editor", Email: defaultEmail}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	f.files = &recordingFiles{Store: filestore.New(f.src, afero.NewMemMapFs())}
	f.log, f.hook = test.NewNullLogger()
	f.log.SetLevel(logrus.DebugLevel)
	return f
}

// seedJournal creates a journal with a manager group assigned to
// managerStages, an author group and the SUBMISSION genre.
func seedJournal(t *testing.T, db *storage.DB, path string, managerStages []int) (journal.Journal, journal.UserGroup, journal.UserGroup) {
	t.Helper()

	j, err := db.CreateJournal(journal.Journal{
		Path:          path,
		PrimaryLocale: "en_US",
		Name:          journal.Text{"en_US": "Journal of Coastal Studies"},
		License: journal.LicensePolicy{
			CopyrightHolderType: journal.CopyrightHolderAuthor,
			CopyrightYearBasis:  journal.CopyrightYearIssue,
			LicenseURL:          "https://creativecommons.org/licenses/by/4.0/",
		},
	})
	if err != nil {
		t.Fatalf("CreateJournal() error = %v", err)
	}
	manager, err := db.CreateUserGroup(journal.UserGroup{
		JournalID: j.ID,
		RoleID:    journal.RoleManager,
		Name:      journal.Text{"en_US": "Journal manager"},
		Abbrev:    "JM",
		Stages:    managerStages,
	})
	if err != nil {
		t.Fatalf("CreateUserGroup() error = %v", err)
	}
	author, err := db.CreateUserGroup(journal.UserGroup{
		JournalID: j.ID,
		RoleID:    journal.RoleAuthor,
		Name:      journal.Text{"en_US": "Author"},
		Abbrev:    "AU",
		Stages:    []int{journal.StageSubmission, journal.StageProduction},
	})
	if err != nil {
		t.Fatalf("CreateUserGroup() error = %v", err)
	}
	if _, err := db.CreateGenre(journal.Genre{JournalID: j.ID, Key: "submission"}); err != nil {
		t.Fatalf("CreateGenre() error = %v", err)
	}
	return j, manager, author
}

// deps wires the fixture's collaborators.
func (f *fixture) deps() Deps {
	return DepsFromDB(f.db, f.files, f.indexer, i18n.MustLoad())
}

func (f *fixture) importer(deps Deps) *Importer {
	return New(deps, WithLogger(f.log), WithClock(func() time.Time { return fixedNow }))
}

// writePDF places a file in the source filesystem and returns its path.
func (f *fixture) writePDF(t *testing.T, name string) string {
	t.Helper()
	path := "/incoming/" + name
	if err := afero.WriteFile(f.src, path, []byte("fake galley bytes for "+name), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// request builds an import request for the XML record doc.
func (f *fixture) request(t *testing.T, doc string, paths ...string) Request {
	t.Helper()
	root, err := xmltree.ParseString(doc)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return Request{
		Journal:      &f.journal,
		User:         &f.user,
		Editor:       &f.editor,
		Root:         root,
		PDFPaths:     paths,
		Volume:       "5",
		Number:       "2",
		DefaultEmail: defaultEmail,
	}
}

// countAll reports how many issues, sections and submissions are stored.
func (f *fixture) countAll(t *testing.T) (issues, sections, submissions int) {
	t.Helper()
	var err error
	if issues, err = f.db.CountIssues(); err != nil {
		t.Fatalf("CountIssues() error = %v", err)
	}
	if sections, err = f.db.CountSections(); err != nil {
		t.Fatalf("CountSections() error = %v", err)
	}
	if submissions, err = f.db.CountSubmissions(); err != nil {
		t.Fatalf("CountSubmissions() error = %v", err)
	}
	return issues, sections, submissions
}

// recordingIndexer records notifications in the order they arrive.
type recordingIndexer struct {
	calls []string
	err   error
}

func (ix *recordingIndexer) SubmissionMetadataChanged(id int64) {
	ix.calls = append(ix.calls, fmt.Sprintf("metadata %d", id))
}

func (ix *recordingIndexer) SubmissionFilesChanged(id int64) {
	ix.calls = append(ix.calls, fmt.Sprintf("files %d", id))
}

func (ix *recordingIndexer) SubmissionChangesFinished() error {
	ix.calls = append(ix.calls, "finished")
	return ix.err
}

// recordingFiles remembers every file ID it stored.
type recordingFiles struct {
	*filestore.Store
	added []string
}

func (f *recordingFiles) Add(srcPath, key string) (string, error) {
	id, err := f.Store.Add(srcPath, key)
	if err == nil {
		f.added = append(f.added, id)
	}
	return id, err
}

// failingSubmissionFiles rejects every submission file record.
type failingSubmissionFiles struct {
	*storage.DB
}

func (failingSubmissionFiles) CreateSubmissionFile(journal.SubmissionFile) (journal.SubmissionFile, error) {
	return journal.SubmissionFile{}, fmt.Errorf("disk quota exceeded")
}

// undeletableSubmissions refuses to delete submissions.
type undeletableSubmissions struct {
	*storage.DB
}

func (undeletableSubmissions) DeleteSubmission(id int64) error {
	return fmt.Errorf("submission %d is locked", id)
}

// failingIssueLookup fails every issue lookup.
type failingIssueLookup struct {
	*storage.DB
}

func (failingIssueLookup) FindPublishedIssue(int64, int, int) (*journal.Issue, error) {
	return nil, fmt.Errorf("database is locked")
}
