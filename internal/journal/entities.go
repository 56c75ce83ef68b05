package journal

import (
	"time"

	"github.com/matsen/bepress/internal/locale"
)

// Issue is a numbered, dated container of published articles.
type Issue struct {
	ID            int64     `json:"id"`
	JournalID     int64     `json:"journal_id"`
	Volume        int       `json:"volume"`
	Number        int       `json:"number"`
	Year          int       `json:"year"`
	Title         Text      `json:"title"`
	DatePublished time.Time `json:"date_published"`
	Published     bool      `json:"published"`
	Current       bool      `json:"current"`
	AccessStatus  int       `json:"access_status"`
	ShowVolume    bool      `json:"show_volume"`
	ShowNumber    bool      `json:"show_number"`
	ShowYear      bool      `json:"show_year"`
	ShowTitle     bool      `json:"show_title"`
	LastModified  time.Time `json:"last_modified"`
}

// Section is a category articles are grouped under.
type Section struct {
	ID                   int64 `json:"id"`
	JournalID            int64 `json:"journal_id"`
	Title                Text  `json:"title"`
	Abbrev               Text  `json:"abbrev"`
	Policy               Text  `json:"policy"`
	AbstractsNotRequired bool  `json:"abstracts_not_required"`
	MetaIndexed          bool  `json:"meta_indexed"`
	MetaReviewed         bool  `json:"meta_reviewed"`
	EditorRestricted     bool  `json:"editor_restricted"`
	HideTitle            bool  `json:"hide_title"`
	HideAuthor           bool  `json:"hide_author"`
}

// Submission is the tracked work item for one article.
type Submission struct {
	ID                   int64         `json:"id"`
	ContextID            int64         `json:"context_id"`
	Locale               locale.Locale `json:"locale"`
	Status               int           `json:"status"`
	StageID              int           `json:"stage_id"`
	SubmissionProgress   int           `json:"submission_progress"`
	DateSubmitted        time.Time     `json:"date_submitted"`
	DateLastActivity     time.Time     `json:"date_last_activity"`
	LastModified         time.Time     `json:"last_modified"`
	CurrentPublicationID int64         `json:"current_publication_id"`
}

// Publication is a versioned snapshot of a submission's citable metadata.
type Publication struct {
	ID              int64     `json:"id"`
	SubmissionID    int64     `json:"submission_id"`
	SectionID       int64     `json:"section_id"`
	IssueID         int64     `json:"issue_id"`
	Version         int       `json:"version"`
	Status          int       `json:"status"`
	Languages       []string  `json:"languages"`
	Title           Text      `json:"title"`
	Abstract        Text      `json:"abstract,omitempty"`
	Pages           string    `json:"pages,omitempty"`
	CopyrightHolder Text      `json:"copyright_holder,omitempty"`
	CopyrightYear   int       `json:"copyright_year,omitempty"`
	LicenseURL      string    `json:"license_url,omitempty"`
	AccessStatus    int       `json:"access_status"`
	Seq             int64     `json:"seq"`
	DatePublished   time.Time `json:"date_published"`
	DOI             string    `json:"doi,omitempty"`
	LastModified    time.Time `json:"last_modified"`

	// Controlled vocabularies. Persisting a publication replaces the
	// stored vocabularies with these values.
	Keywords    locale.Map `json:"-"`
	Subjects    locale.Map `json:"-"`
	Disciplines locale.Map `json:"-"`
}

// Vocabulary kinds of a publication.
const (
	VocabKeyword    = "keyword"
	VocabSubject    = "subject"
	VocabDiscipline = "discipline"
)

// Galley is a published representation (e.g. a PDF) of a publication.
type Galley struct {
	ID               int64         `json:"id"`
	PublicationID    int64         `json:"publication_id"`
	Locale           locale.Locale `json:"locale"`
	Name             Text          `json:"name"`
	Label            string        `json:"label"`
	Seq              int           `json:"seq"`
	SubmissionFileID int64         `json:"submission_file_id,omitempty"`
}

// SubmissionFile records a stored file attached to a submission.
type SubmissionFile struct {
	ID             int64     `json:"id"`
	SubmissionID   int64     `json:"submission_id"`
	FileID         string    `json:"file_id"`
	GenreID        int64     `json:"genre_id"`
	FileStage      int       `json:"file_stage"`
	UploaderUserID int64     `json:"uploader_user_id"`
	AssocType      int       `json:"assoc_type"`
	AssocID        int64     `json:"assoc_id"`
	Name           Text      `json:"name"`
	Pages          int       `json:"pages,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Genre classifies the purpose of an uploaded file.
type Genre struct {
	ID        int64  `json:"id" yaml:"-"`
	JournalID int64  `json:"journal_id" yaml:"-"`
	Key       string `json:"key" yaml:"key"`
}

// User is an account that imports or edits content.
type User struct {
	ID       int64  `json:"id" yaml:"-"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
}

// UserGroup is a role-bearing group of users within a journal.
type UserGroup struct {
	ID        int64  `json:"id" yaml:"-"`
	JournalID int64  `json:"journal_id" yaml:"-"`
	RoleID    int    `json:"role_id" yaml:"role_id"`
	Name      Text   `json:"name" yaml:"name"`
	Abbrev    string `json:"abbrev" yaml:"abbrev"`
	Stages    []int  `json:"stages" yaml:"stages"`
	ShowTitle bool   `json:"show_title" yaml:"show_title"`
}

// AssignedToStage reports whether the group participates in stage.
func (g UserGroup) AssignedToStage(stage int) bool {
	for _, s := range g.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// StageAssignment links a user, through a group, to a submission's workflow.
type StageAssignment struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	UserGroupID  int64     `json:"user_group_id"`
	UserID       int64     `json:"user_id"`
	DateAssigned time.Time `json:"date_assigned"`
}
