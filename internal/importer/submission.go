package importer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
	"github.com/sirupsen/logrus"
)

// Names of the entries read from an article's fields container.
const (
	fieldLicense         = "distribution_license"
	fieldPublicationDate = "publication_date"
	fieldDOI             = "doi"
)

// buildSubmission creates the submission with its publication and authors,
// assigns the editor, and applies the DOI, license and vocabularies.
func (r *run) buildSubmission() error {
	r.scanFields()

	sub, err := r.createSubmission()
	if err != nil {
		return err
	}

	pub, err := r.createPublication(sub)
	if err != nil {
		return err
	}

	if err := r.mapAuthors(sub, pub); err != nil {
		return err
	}
	if err := r.assignEditor(sub); err != nil {
		return err
	}
	if err := r.registerDOI(&pub); err != nil {
		return err
	}

	pub, err = r.applyLicense(sub, pub)
	if err != nil {
		return err
	}
	if err := r.insertVocabularies(&pub); err != nil {
		return err
	}

	r.result.Publication = pub
	return nil
}

// scanFields reads the license, publication date and DOI declared in the
// article's fields container. A field declared twice keeps its last value.
func (r *run) scanFields() {
	fields := r.article.Child("fields")
	if fields == nil {
		return
	}
	for _, field := range fields.ChildrenNamed("field") {
		value := field.Child("value")
		if value == nil {
			continue
		}
		switch field.Attr("name") {
		case fieldLicense:
			r.licenseURL = validURL(value.Value())
		case fieldPublicationDate:
			r.pubDateText = value.Value()
		case fieldDOI:
			r.doi = value.Value()
		}
	}
}

// validURL returns s trimmed if it is an absolute URL with a host, else "".
func validURL(s string) string {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return s
}

// publicationDate returns the declared publication date when it is a full
// calendar date, else the issue's publication date.
func (r *run) publicationDate() time.Time {
	if t, ok := parseFullDate(r.pubDateText); ok {
		return t
	}
	return r.result.Issue.DatePublished
}

func (r *run) submissionDate(published time.Time) time.Time {
	if raw, ok := r.article.ChildValue("submission-date"); ok {
		if t, ok := parseFullDate(raw); ok {
			return t
		}
	}
	return published
}

func (r *run) createSubmission() (journal.Submission, error) {
	subs := r.imp.deps.Submissions
	published := r.publicationDate()

	sub, err := subs.CreateSubmission(journal.Submission{
		ContextID:          r.journalID(),
		Locale:             r.primary,
		Status:             journal.StatusPublished,
		StageID:            journal.StageProduction,
		SubmissionProgress: 0,
		DateSubmitted:      r.submissionDate(published),
		DateLastActivity:   published,
	})
	if err != nil {
		return journal.Submission{}, fmt.Errorf("creating submission: %w", err)
	}

	id := sub.ID
	r.track("submission", func() error { return subs.DeleteSubmission(id) })
	r.result.Submission = sub
	r.log = r.log.WithField("submission", id)
	return sub, nil
}

// createPublication creates the submission's only publication and points the
// submission at it.
func (r *run) createPublication(sub journal.Submission) (journal.Publication, error) {
	if r.titles.IsEmpty() {
		return journal.Publication{}, r.fail(MissingTitle, nil)
	}

	pub := journal.Publication{
		SubmissionID:  sub.ID,
		SectionID:     r.result.Section.ID,
		IssueID:       r.result.Issue.ID,
		Version:       1,
		Status:        journal.StatusPublished,
		Languages:     []string{r.primary.Language()},
		Title:         journal.Text(r.titles.Lasts()),
		DatePublished: r.publicationDate(),
		AccessStatus:  journal.AccessOpen,
		Seq:           sub.ID,
		Pages:         r.pages(),
	}
	if abstracts := locale.Extract(r.article, "abstract", "abstracts", r.primary); !abstracts.IsEmpty() {
		pub.Abstract = journal.Text(abstracts.Lasts())
	}

	pub, err := r.imp.deps.Publications.CreatePublication(pub)
	if err != nil {
		return journal.Publication{}, fmt.Errorf("creating publication: %w", err)
	}

	sub.CurrentPublicationID = pub.ID
	sub, err = r.imp.deps.Submissions.UpdateSubmission(sub)
	if err != nil {
		return journal.Publication{}, fmt.Errorf("setting current publication: %w", err)
	}
	r.result.Submission = sub
	r.result.Publication = pub
	return pub, nil
}

// pages returns "first-last" when the article declares both pages.
func (r *run) pages() string {
	first, _ := r.article.ChildValue("fpage")
	if first == "" {
		return ""
	}
	last, _ := r.article.ChildValue("lpage")
	if last == "" {
		return ""
	}
	return first + "-" + last
}

// assignEditor makes the editor a participant of the submission through the
// first manager group assigned to the submission's stage.
func (r *run) assignEditor(sub journal.Submission) error {
	dir := r.imp.deps.Directory
	groups, err := dir.GetUserGroupsByRole(r.journalID(), journal.RoleManager)
	if err != nil {
		return fmt.Errorf("listing manager groups: %w", err)
	}

	var group *journal.UserGroup
	for i := range groups {
		if groups[i].AssignedToStage(sub.StageID) {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return r.fail(MissingEditorGroupID, nil)
	}

	_, err = r.imp.deps.Submissions.CreateStageAssignment(journal.StageAssignment{
		SubmissionID: sub.ID,
		UserGroupID:  group.ID,
		UserID:       r.req.Editor.ID,
		DateAssigned: r.imp.now(),
	})
	if err != nil {
		return fmt.Errorf("assigning editor: %w", err)
	}
	r.log.WithField("group", group.ID).Debug("Assigned editor")
	return nil
}

// registerDOI stores the DOI from the fields container, or from an
// article-id of type doi.
func (r *run) registerDOI(pub *journal.Publication) error {
	doi := r.doi
	if doi == "" {
		if id := r.article.Child("article-id"); id != nil && id.Attr("pub-id-type") == "doi" {
			doi = id.Value()
		}
	}
	if doi == "" {
		return nil
	}
	if err := r.imp.deps.Publications.SetPublicationDOI(pub.ID, doi); err != nil {
		return fmt.Errorf("registering DOI %q: %w", doi, err)
	}
	pub.DOI = doi
	return nil
}

// applyLicense sets the copyright holder, copyright year and license URL,
// falling back to the journal's licensing policy for values the article
// does not provide.
func (r *run) applyLicense(sub journal.Submission, pub journal.Publication) (journal.Publication, error) {
	j := *r.req.Journal

	holder, err := r.authorString()
	if err != nil {
		return pub, err
	}

	var overlay journal.Publication
	if holder != "" {
		overlay.CopyrightHolder = textIn(r.primary, holder)
	}
	if !pub.DatePublished.IsZero() {
		overlay.CopyrightYear = pub.DatePublished.Year()
	}
	overlay.LicenseURL = r.licenseURL

	if len(overlay.CopyrightHolder) == 0 {
		overlay.CopyrightHolder = j.DefaultCopyrightHolder(holder)
	}
	if overlay.CopyrightYear == 0 && sub.Status == journal.StatusPublished {
		overlay.CopyrightYear = j.DefaultCopyrightYear(&r.result.Issue, pub)
	}
	if overlay.LicenseURL == "" {
		overlay.LicenseURL = j.DefaultLicenseURL()
	}

	if len(overlay.CopyrightHolder) > 0 {
		pub.CopyrightHolder = overlay.CopyrightHolder
	}
	if overlay.CopyrightYear != 0 {
		pub.CopyrightYear = overlay.CopyrightYear
	}
	if overlay.LicenseURL != "" {
		pub.LicenseURL = overlay.LicenseURL
	}

	pub, err = r.imp.deps.Publications.UpdatePublication(pub)
	if err != nil {
		return pub, fmt.Errorf("updating license: %w", err)
	}
	r.log.WithFields(logrus.Fields{
		"copyright_year": pub.CopyrightYear,
		"license":        pub.LicenseURL,
	}).Debug("Applied license")
	return pub, nil
}

// authorString lists the imported authors with the groups they belong to.
func (r *run) authorString() (string, error) {
	var groups []journal.UserGroup
	seen := make(map[int64]bool)
	for _, a := range r.result.Authors {
		if a.UserGroupID == 0 || seen[a.UserGroupID] {
			continue
		}
		seen[a.UserGroupID] = true
		g, err := r.imp.deps.Directory.GetUserGroupByID(a.UserGroupID)
		if err != nil {
			return "", fmt.Errorf("loading user group %d: %w", a.UserGroupID, err)
		}
		if g != nil {
			groups = append(groups, *g)
		}
	}
	return journal.AuthorString(r.result.Authors, groups, r.primary), nil
}

// insertVocabularies stores keywords, subjects and disciplines. Updating the
// publication replaces its vocabularies, so this runs after the last update.
func (r *run) insertVocabularies(pub *journal.Publication) error {
	for _, v := range []struct {
		kind             string
		singular, plural string
		dst              *locale.Map
	}{
		{journal.VocabKeyword, "keyword", "keywords", &pub.Keywords},
		{journal.VocabSubject, "subject-area", "subject-areas", &pub.Subjects},
		{journal.VocabDiscipline, "discipline", "disciplines", &pub.Disciplines},
	} {
		terms := locale.SplitTerms(locale.Extract(r.article, v.singular, v.plural, r.primary))
		if terms.IsEmpty() {
			continue
		}
		if err := r.imp.deps.Publications.InsertVocabulary(pub.ID, v.kind, terms); err != nil {
			return fmt.Errorf("inserting %s vocabulary: %w", v.kind, err)
		}
		*v.dst = terms
	}
	return nil
}
