package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
	"github.com/matsen/bepress/internal/search"
	"github.com/sirupsen/logrus"
)

const janeDoeRecord = `<documents>
  <document>
    <title>A Study</title>
    <publication-date>2019-03-15</publication-date>
    <authors>
      <author>
        <email>jane@example.org</email>
        <institution>Coastal University</institution>
        <lname>Doe</lname>
        <fname>Jane</fname>
      </author>
    </authors>
  </document>
</documents>`

func TestImport_JaneDoe(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, janeDoeRecord, f.writePDF(t, "jane-doe.pdf"))

	res, entries, err := f.importer(f.deps()).Import(context.Background(), req)
	if err != nil {
		t.Fatalf("Import() error = %v, entries = %v", err, Keys(entries))
	}
	if len(entries) != 0 {
		t.Errorf("Import() entries = %v, want none", Keys(entries))
	}

	if !res.IssueCreated {
		t.Error("IssueCreated = false, want true")
	}
	if got := res.Issue.Title.Get("en_US"); got != "Vol. 5, No. 2 (2019)" {
		t.Errorf("issue title = %q, want %q", got, "Vol. 5, No. 2 (2019)")
	}
	if res.Issue.Volume != 5 || res.Issue.Number != 2 || res.Issue.Year != 2019 {
		t.Errorf("issue vol/num/year = %d/%d/%d, want 5/2/2019", res.Issue.Volume, res.Issue.Number, res.Issue.Year)
	}
	wantDate := time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)
	if !res.Issue.DatePublished.Equal(wantDate) {
		t.Errorf("issue date = %v, want %v", res.Issue.DatePublished, wantDate)
	}
	if !res.Issue.Published || res.Issue.Current || res.Issue.ShowTitle || !res.Issue.ShowVolume {
		t.Errorf("issue flags = %+v", res.Issue)
	}

	if got := res.Section.Title.Get("en_US"); got != "Articles" {
		t.Errorf("section title = %q, want Articles", got)
	}
	if got := res.Section.Abbrev.Get("en_US"); got != "ART" {
		t.Errorf("section abbrev = %q, want ART", got)
	}
	if got := res.Section.Policy.Get("en_US"); got != "Section default policy" {
		t.Errorf("section policy = %q", got)
	}

	if len(res.Authors) != 1 {
		t.Fatalf("len(Authors) = %d, want 1", len(res.Authors))
	}
	a := res.Authors[0]
	if got := a.FullName("en_US"); got != "Jane Doe" {
		t.Errorf("author name = %q, want Jane Doe", got)
	}
	if a.Email != "jane@example.org" || a.Affiliation.Get("en_US") != "Coastal University" {
		t.Errorf("author email/affiliation = %q/%q", a.Email, a.Affiliation.Get("en_US"))
	}
	if a.UserGroupID != f.author.ID {
		t.Errorf("author group = %d, want %d", a.UserGroupID, f.author.ID)
	}

	if len(res.Galleys) != 1 || len(res.Files) != 1 {
		t.Fatalf("galleys/files = %d/%d, want 1/1", len(res.Galleys), len(res.Files))
	}
	g, file := res.Galleys[0], res.Files[0]
	want := journal.Galley{
		ID:               g.ID,
		PublicationID:    res.Publication.ID,
		Locale:           "en_US",
		Name:             journal.Text{"en_US": "jane-doe.pdf"},
		Label:            "PDF",
		Seq:              1,
		SubmissionFileID: file.ID,
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("galley mismatch (-want +got):\n%s", diff)
	}
	if file.FileStage != journal.FileStageProof || file.AssocType != journal.AssocTypeRepresentation || file.AssocID != g.ID {
		t.Errorf("submission file = %+v", file)
	}
	if file.UploaderUserID != f.editor.ID || !file.CreatedAt.Equal(fixedNow) {
		t.Errorf("file uploader/created = %d/%v", file.UploaderUserID, file.CreatedAt)
	}
	if ok, err := f.files.Exists(file.FileID); err != nil || !ok {
		t.Errorf("stored file %s exists = %v, %v", file.FileID, ok, err)
	}

	pub := res.Publication
	if got := pub.CopyrightHolder.Get("en_US"); got != "Jane Doe" {
		t.Errorf("copyright holder = %q, want Jane Doe", got)
	}
	if pub.CopyrightYear != 2019 {
		t.Errorf("copyright year = %d, want 2019", pub.CopyrightYear)
	}
	if pub.LicenseURL != f.journal.License.LicenseURL {
		t.Errorf("license = %q, want journal default", pub.LicenseURL)
	}
	if diff := cmp.Diff([]string{"en"}, pub.Languages); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}

	assignments, err := f.db.GetStageAssignments(res.Submission.ID)
	if err != nil {
		t.Fatalf("GetStageAssignments() error = %v", err)
	}
	if len(assignments) != 1 || assignments[0].UserGroupID != f.manager.ID || assignments[0].UserID != f.editor.ID {
		t.Errorf("stage assignments = %+v", assignments)
	}

	wantCalls := []string{"metadata 1", "files 1", "finished"}
	if diff := cmp.Diff(wantCalls, f.indexer.calls); diff != "" {
		t.Errorf("indexer calls mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_CurrentPublication(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, janeDoeRecord, f.writePDF(t, "jane-doe.pdf"))

	res, _, err := f.importer(f.deps()).Import(context.Background(), req)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	sub, err := f.db.GetSubmissionByID(res.Submission.ID)
	if err != nil || sub == nil {
		t.Fatalf("GetSubmissionByID() = %v, %v", sub, err)
	}
	pub, err := f.db.GetPublicationByID(sub.CurrentPublicationID)
	if err != nil || pub == nil {
		t.Fatalf("GetPublicationByID(%d) = %v, %v", sub.CurrentPublicationID, pub, err)
	}
	if pub.SubmissionID != sub.ID {
		t.Errorf("current publication belongs to submission %d, want %d", pub.SubmissionID, sub.ID)
	}
	if pub.Seq != sub.ID || pub.Version != 1 || pub.Status != journal.StatusPublished {
		t.Errorf("publication seq/version/status = %d/%d/%d", pub.Seq, pub.Version, pub.Status)
	}
	if sub.Status != journal.StatusPublished || sub.StageID != journal.StageProduction {
		t.Errorf("submission status/stage = %d/%d", sub.Status, sub.StageID)
	}
}

func TestImport_ReusesIssueAndSection(t *testing.T) {
	f := newFixture(t)
	imp := f.importer(f.deps())
	path := f.writePDF(t, "jane-doe.pdf")

	first, _, err := imp.Import(context.Background(), f.request(t, janeDoeRecord, path))
	if err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	second, _, err := imp.Import(context.Background(), f.request(t, janeDoeRecord, path))
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}

	if second.Issue.ID != first.Issue.ID || second.IssueCreated {
		t.Errorf("second issue = %d (created %v), want reuse of %d", second.Issue.ID, second.IssueCreated, first.Issue.ID)
	}
	if second.Section.ID != first.Section.ID || second.SectionCreated {
		t.Errorf("second section = %d (created %v), want reuse of %d", second.Section.ID, second.SectionCreated, first.Section.ID)
	}
	if second.Submission.ID == first.Submission.ID {
		t.Error("second import reused the submission")
	}

	issues, sections, submissions := f.countAll(t)
	if issues != 1 || sections != 1 || submissions != 2 {
		t.Errorf("counts issues/sections/submissions = %d/%d/%d, want 1/1/2", issues, sections, submissions)
	}
}

func TestImport_SectionFromDocumentType(t *testing.T) {
	f := newFixture(t)
	doc := `<document><title>On Tides</title><publication-date>2020-06</publication-date>
		<document-type>book_review</document-type><type>article</type></document>`

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "tides.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if got := res.Section.Title.Get("en_US"); got != "Book Review" {
		t.Errorf("section = %q, want Book Review", got)
	}
	if got := res.Section.Abbrev.Get("en_US"); got != "BOO" {
		t.Errorf("abbrev = %q, want BOO", got)
	}
	if want := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC); !res.Issue.DatePublished.Equal(want) {
		t.Errorf("issue date = %v, want %v", res.Issue.DatePublished, want)
	}
}

func TestImport_Vocabularies(t *testing.T) {
	f := newFixture(t)
	doc := `<document>
		<title>Estuary Governance</title>
		<publication-date>2019-03-15</publication-date>
		<keywords><keyword>ecology; policy</keyword></keywords>
		<subject-areas><subject-area locale="fr_CA">écologie</subject-area></subject-areas>
		<discipline>Marine Biology</discipline>
	</document>`

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "estuary.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	tests := []struct {
		kind   string
		locale locale.Locale
		want   []string
	}{
		{journal.VocabKeyword, "en_US", []string{"ecology", "policy"}},
		{journal.VocabSubject, "fr_CA", []string{"écologie"}},
		{journal.VocabDiscipline, "en_US", []string{"Marine Biology"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := f.db.GetVocabulary(res.Publication.ID, tt.kind)
			if err != nil {
				t.Fatalf("GetVocabulary() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Get(tt.locale)); diff != "" {
				t.Errorf("%s terms mismatch (-want +got):\n%s", tt.kind, diff)
			}
		})
	}
}

func TestImport_MissingVolume(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, janeDoeRecord, f.writePDF(t, "jane-doe.pdf"))
	req.Volume = ""

	res, entries, err := f.importer(f.deps()).Import(context.Background(), req)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Import() error = %v, want ErrPrecondition", err)
	}
	if res != nil {
		t.Errorf("Import() result = %+v, want nil", res)
	}
	if diff := cmp.Diff([]string{MissingVolumeNumber.Key()}, Keys(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if entries[0].Params["title"] != "A Study" {
		t.Errorf("entry params = %v", entries[0].Params)
	}

	issues, sections, submissions := f.countAll(t)
	if issues+sections+submissions != 0 {
		t.Errorf("counts = %d/%d/%d, want nothing created", issues, sections, submissions)
	}
}

func TestImport_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
	}{
		{"no journal", func(r *Request) { r.Journal = nil }},
		{"no user", func(r *Request) { r.User = nil }},
		{"no editor", func(r *Request) { r.Editor = nil }},
		{"no root", func(r *Request) { r.Root = nil }},
		{"no files", func(r *Request) { r.PDFPaths = nil }},
		{"no default email", func(r *Request) { r.DefaultEmail = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request(t, janeDoeRecord, f.writePDF(t, "jane-doe.pdf"))
			tt.modify(&req)

			_, entries, err := f.importer(f.deps()).Import(context.Background(), req)
			if !errors.Is(err, ErrPrecondition) {
				t.Fatalf("Import() error = %v, want ErrPrecondition", err)
			}
			if len(entries) != 0 {
				t.Errorf("entries = %v, want none", Keys(entries))
			}
			if issues, _, submissions := f.countAll(t); issues+submissions != 0 {
				t.Errorf("created %d issues and %d submissions", issues, submissions)
			}
		})
	}
}

func TestImport_NoDocumentElement(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, `<documents><record/></documents>`, f.writePDF(t, "a.pdf"))

	_, _, err := f.importer(f.deps()).Import(context.Background(), req)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("Import() error = %v, want ErrPrecondition", err)
	}
}

func TestImport_MissingTitle(t *testing.T) {
	f := newFixture(t)
	doc := `<document><publication-date>2019-03-15</publication-date></document>`

	res, entries, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("Import() error = %v, want ErrImportFailed", err)
	}
	if res != nil {
		t.Errorf("Import() result = %+v, want nil", res)
	}
	if diff := cmp.Diff([]string{MissingTitle.Key()}, Keys(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	issues, sections, submissions := f.countAll(t)
	if issues != 0 || submissions != 0 {
		t.Errorf("issues/submissions = %d/%d, want 0/0 after rollback", issues, submissions)
	}
	if sections != 1 {
		t.Errorf("sections = %d, want the created section kept", sections)
	}
	if n, _ := f.db.CountPublications(); n != 0 {
		t.Errorf("publications = %d, want 0", n)
	}
	if len(f.indexer.calls) != 0 {
		t.Errorf("indexer notified on failure: %v", f.indexer.calls)
	}
}

func TestImport_MissingPubDate(t *testing.T) {
	f := newFixture(t)
	doc := `<document><title>Undated</title><publication-date>2019</publication-date></document>`

	_, entries, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("Import() error = %v, want ErrImportFailed", err)
	}
	want := []string{MissingPubDate.Key(), MissingIssue.Key()}
	if diff := cmp.Diff(want, Keys(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if issues, sections, submissions := f.countAll(t); issues+sections+submissions != 0 {
		t.Errorf("counts = %d/%d/%d, want nothing created", issues, sections, submissions)
	}
}

func TestImport_MissingEditorGroup(t *testing.T) {
	f := newFixture(t)
	f.journal, _, _ = seedJournal(t, f.db, "unstaffed", []int{journal.StageSubmission})

	_, entries, err := f.importer(f.deps()).Import(context.Background(), f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf")))
	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("Import() error = %v, want ErrImportFailed", err)
	}
	if diff := cmp.Diff([]string{MissingEditorGroupID.Key()}, Keys(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if n, _ := f.db.CountAuthors(); n != 0 {
		t.Errorf("authors = %d, want 0 after rollback", n)
	}
	if issues, _, submissions := f.countAll(t); issues != 0 || submissions != 0 {
		t.Errorf("issues/submissions = %d/%d, want 0/0", issues, submissions)
	}
}

func TestImport_MissingGenre(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf"))
	req.GenreKey = "supplementary"

	_, entries, err := f.importer(f.deps()).Import(context.Background(), req)
	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("Import() error = %v, want ErrImportFailed", err)
	}
	if len(entries) != 1 || entries[0].Kind != MissingGenre {
		t.Fatalf("entries = %v, want one missingGenre", Keys(entries))
	}
	if got := entries[0].Params["genre"]; got != "supplementary" {
		t.Errorf("genre param = %q", got)
	}
	if len(f.files.added) != 0 {
		t.Errorf("stored files %v, want none", f.files.added)
	}
}

func TestImport_NameInversion(t *testing.T) {
	f := newFixture(t)
	doc := `<document><title>Dialogues</title><publication-date>2019-03-15</publication-date>
		<authors><author><lname>Plato</lname></author></authors></document>`

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	a := res.Authors[0]
	if diff := cmp.Diff(journal.Text{"en_US": "Plato"}, a.GivenName); diff != "" {
		t.Errorf("given name mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(journal.Text{"en_US": ""}, a.FamilyName); diff != "" {
		t.Errorf("family name mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_Authors(t *testing.T) {
	f := newFixture(t)
	doc := `<document><title>Shoreline Retreat</title><publication-date>2019-03-15</publication-date>
		<authors>
			<author><fname>Ana</fname><lname>Souza</lname></author>
			<author><fname>John</fname><mname>Q</mname><lname>Public</lname><suffix>Jr.</suffix></author>
			<author><fname>Lee</fname><lname>Chen</lname><preferredname>Dr. Lee Chen</preferredname><email></email></author>
			<author/>
		</authors></document>`

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	stored, err := f.db.GetAuthorsBySubmission(res.Submission.ID)
	if err != nil {
		t.Fatalf("GetAuthorsBySubmission() error = %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("len(authors) = %d, want 4", len(stored))
	}

	primary := 0
	for i, a := range stored {
		if a.Seq != i+1 {
			t.Errorf("author %d seq = %d", i, a.Seq)
		}
		if a.PrimaryContact {
			primary++
			if a.Seq != 1 {
				t.Errorf("primary contact has seq %d, want 1", a.Seq)
			}
		}
		if a.PublicationID != res.Publication.ID || !a.IncludeInBrowse {
			t.Errorf("author %d publication/browse = %d/%v", i, a.PublicationID, a.IncludeInBrowse)
		}
	}
	if primary != 1 {
		t.Errorf("%d primary contacts, want 1", primary)
	}

	tests := []struct {
		index     int
		fullName  string
		email     string
		preferred string
	}{
		{0, "Ana Souza", defaultEmail, ""},
		{1, "John Q Public Jr.", defaultEmail, "John Q Public Jr."},
		{2, "Dr. Lee Chen", "", "Dr. Lee Chen"},
		{3, "Journal of Coastal Studies", defaultEmail, ""},
	}
	for _, tt := range tests {
		a := stored[tt.index]
		if got := a.FullName("en_US"); got != tt.fullName {
			t.Errorf("author %d FullName() = %q, want %q", tt.index, got, tt.fullName)
		}
		if a.Email != tt.email {
			t.Errorf("author %d email = %q, want %q", tt.index, a.Email, tt.email)
		}
		if got := a.PreferredPublicName.Get("en_US"); got != tt.preferred {
			t.Errorf("author %d preferred = %q, want %q", tt.index, got, tt.preferred)
		}
	}

	if got := res.Publication.CopyrightHolder.Get("en_US"); got != "Ana Souza, John Q Public Jr., Dr. Lee Chen, Journal of Coastal Studies" {
		t.Errorf("copyright holder = %q", got)
	}
}

func TestImport_PlaceholderAuthor(t *testing.T) {
	f := newFixture(t)
	doc := `<document><title>Editorial</title><publication-date>2019-03-15</publication-date></document>`

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	want := journal.Author{
		ID:              res.Authors[0].ID,
		SubmissionID:    res.Submission.ID,
		PublicationID:   res.Publication.ID,
		GivenName:       journal.Text{"en_US": "Journal of Coastal Studies"},
		FamilyName:      journal.Text{"en_US": ""},
		Email:           defaultEmail,
		Seq:             1,
		PrimaryContact:  true,
		IncludeInBrowse: true,
		UserGroupID:     f.author.ID,
	}
	if diff := cmp.Diff([]journal.Author{want}, res.Authors); diff != "" {
		t.Errorf("authors mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_Fields(t *testing.T) {
	f := newFixture(t)
	doc := `<document>
		<title>Dune Stabilization</title>
		<publication-date>2019-03-15</publication-date>
		<submission-date>2018-11-02</submission-date>
		<fpage>10</fpage><lpage>24</lpage>
		<abstract>Grasses &amp; fences.</abstract>
		<article-id pub-id-type="doi">10.1000/ignored</article-id>
		<fields>
			<field name="publication_date" type="date"><value>2019-04-01</value></field>
			<field name="distribution_license" type="string"><value> https://creativecommons.org/licenses/by-nc/4.0/ </value></field>
			<field name="doi" type="string"><value>10.1000/first</value></field>
			<field name="publication_date" type="date"><value>2019-05-20</value></field>
			<field name="doi" type="string"><value>10.1000/dune.7</value></field>
			<field name="comments" type="string"><value>ignored</value></field>
		</fields>
	</document>`

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	pub := res.Publication
	if want := time.Date(2019, 5, 20, 0, 0, 0, 0, time.UTC); !pub.DatePublished.Equal(want) {
		t.Errorf("date published = %v, want %v", pub.DatePublished, want)
	}
	if want := time.Date(2018, 11, 2, 0, 0, 0, 0, time.UTC); !res.Submission.DateSubmitted.Equal(want) {
		t.Errorf("date submitted = %v, want %v", res.Submission.DateSubmitted, want)
	}
	if pub.LicenseURL != "https://creativecommons.org/licenses/by-nc/4.0/" {
		t.Errorf("license = %q", pub.LicenseURL)
	}
	if pub.Pages != "10-24" {
		t.Errorf("pages = %q, want 10-24", pub.Pages)
	}
	if got := pub.Abstract.Get("en_US"); got != "Grasses & fences." {
		t.Errorf("abstract = %q", got)
	}

	ids, err := f.db.FindPublicationsByDOI("10.1000/dune.7")
	if err != nil {
		t.Fatalf("FindPublicationsByDOI() error = %v", err)
	}
	if diff := cmp.Diff([]int64{pub.ID}, ids); diff != "" {
		t.Errorf("DOI lookup mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_InvalidFieldsFallBack(t *testing.T) {
	f := newFixture(t)
	doc := `<document>
		<title>Sandbars</title>
		<publication-date>2019-03-15</publication-date>
		<submission-date>sometime</submission-date>
		<fpage>3</fpage>
		<article-id pub-id-type="doi">10.1000/sandbars</article-id>
		<fields>
			<field name="publication_date"><value>2019-02</value></field>
			<field name="distribution_license"><value>not a url</value></field>
		</fields>
	</document>`

	res, entries, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v, entries = %v", err, Keys(entries))
	}

	issueDate := time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)
	if !res.Publication.DatePublished.Equal(issueDate) || !res.Submission.DateSubmitted.Equal(issueDate) {
		t.Errorf("dates published/submitted = %v/%v, want issue date", res.Publication.DatePublished, res.Submission.DateSubmitted)
	}
	if res.Publication.LicenseURL != f.journal.License.LicenseURL {
		t.Errorf("license = %q, want journal default", res.Publication.LicenseURL)
	}
	if res.Publication.Pages != "" {
		t.Errorf("pages = %q, want empty without lpage", res.Publication.Pages)
	}
	if res.Publication.DOI != "10.1000/sandbars" {
		t.Errorf("DOI = %q, want article-id value", res.Publication.DOI)
	}
}

func TestImport_YearMonthDates(t *testing.T) {
	f := newFixture(t)
	doc := `<document>
		<title>Salt Marsh Accretion</title>
		<publication-date>March 2019</publication-date>
		<submission-date>2018/11</submission-date>
		<fields>
			<field name="publication_date"><value>2019/04</value></field>
		</fields>
	</document>`

	res, entries, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "marsh.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v, entries = %v", err, Keys(entries))
	}

	issueDate := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	if !res.Issue.DatePublished.Equal(issueDate) || res.Issue.Year != 2019 {
		t.Errorf("issue date = %v (year %d), want %v", res.Issue.DatePublished, res.Issue.Year, issueDate)
	}
	if !res.Publication.DatePublished.Equal(issueDate) || !res.Submission.DateSubmitted.Equal(issueDate) {
		t.Errorf("dates published/submitted = %v/%v, want issue date", res.Publication.DatePublished, res.Submission.DateSubmitted)
	}
}

func TestImport_TitlePromotion(t *testing.T) {
	f := newFixture(t)
	doc := `<document><titles><title locale="fr_CA">Les marées</title><title locale="de_DE">Die Gezeiten</title></titles>
		<publication-date>2019-03-15</publication-date></document>`

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	want := journal.Text{"fr_CA": "Les marées", "de_DE": "Die Gezeiten", "en_US": "Les marées"}
	if diff := cmp.Diff(want, res.Publication.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_DeclaredGalleys(t *testing.T) {
	f := newFixture(t)
	doc := `<document><title>Bilingual</title><publication-date>2019-03-15</publication-date>
		<galleys><galley locale="fr_CA">fr</galley><galley>en</galley><galley>missing</galley></galleys></document>`
	paths := []string{f.writePDF(t, "article-en.pdf"), f.writePDF(t, "article-fr.pdf")}

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, doc, paths...))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	type galley struct {
		Locale locale.Locale
		Name   string
		File   string
	}
	var got []galley
	for i, g := range res.Galleys {
		got = append(got, galley{g.Locale, g.Name.Get("en_US"), res.Files[i].Name.Get(g.Locale)})
	}
	want := []galley{
		{"fr_CA", "article-fr.pdf", "article-fr.pdf"},
		{"en_US", "article-en.pdf", "article-en.pdf"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("galleys mismatch (-want +got):\n%s", diff)
	}

	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["galley"] == "missing" {
			warned = true
		}
	}
	if !warned {
		t.Error("unmatched galley was not logged")
	}
}

func TestImport_RollbackRemovesFiles(t *testing.T) {
	f := newFixture(t)
	deps := f.deps()
	deps.Galleys = failingSubmissionFiles{f.db}

	_, entries, err := f.importer(deps).Import(context.Background(), f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf")))
	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("Import() error = %v, want ErrImportFailed", err)
	}
	var rbErr *RollbackError
	if errors.As(err, &rbErr) {
		t.Errorf("Import() returned %v, want a clean rollback", rbErr)
	}
	if diff := cmp.Diff([]string{ImportFailed.Key()}, Keys(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(entries[0].Params["reason"], "disk quota exceeded") {
		t.Errorf("reason = %q", entries[0].Params["reason"])
	}

	if len(f.files.added) != 1 {
		t.Fatalf("stored %d files, want 1", len(f.files.added))
	}
	if ok, _ := f.files.Exists(f.files.added[0]); ok {
		t.Errorf("stored file %s survived rollback", f.files.added[0])
	}
	if issues, _, submissions := f.countAll(t); issues != 0 || submissions != 0 {
		t.Errorf("issues/submissions = %d/%d, want 0/0", issues, submissions)
	}
	if n, _ := f.db.CountGalleys(); n != 0 {
		t.Errorf("galleys = %d, want 0", n)
	}
}

func TestImport_RollbackFailure(t *testing.T) {
	f := newFixture(t)
	deps := f.deps()
	deps.Submissions = undeletableSubmissions{f.db}
	req := f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf"))
	req.GenreKey = "supplementary"

	_, entries, err := f.importer(deps).Import(context.Background(), req)
	var rbErr *RollbackError
	if !errors.As(err, &rbErr) {
		t.Fatalf("Import() error = %v, want *RollbackError", err)
	}
	if !errors.Is(err, ErrImportFailed) {
		t.Errorf("errors.Is(%v, ErrImportFailed) = false", err)
	}
	if len(rbErr.Errs) != 1 {
		t.Errorf("rollback errors = %v, want 1", rbErr.Errs)
	}

	want := []string{MissingGenre.Key(), RollbackFailed.Key()}
	if diff := cmp.Diff(want, Keys(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	// The issue is undone even though the submission could not be.
	issues, _, submissions := f.countAll(t)
	if issues != 0 || submissions != 1 {
		t.Errorf("issues/submissions = %d/%d, want 0/1", issues, submissions)
	}
}

func TestImport_StoreErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	deps := f.deps()
	deps.Issues = failingIssueLookup{f.db}

	_, entries, err := f.importer(deps).Import(context.Background(), f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf")))
	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("Import() error = %v, want ErrImportFailed", err)
	}
	if !strings.Contains(err.Error(), "database is locked") {
		t.Errorf("Import() error = %v, want the store error", err)
	}
	if diff := cmp.Diff([]string{ImportFailed.Key()}, Keys(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.importer(f.deps()).Import(ctx, f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf")))
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrImportFailed) {
		t.Fatalf("Import() error = %v, want canceled import", err)
	}
	if issues, sections, submissions := f.countAll(t); issues+sections+submissions != 0 {
		t.Errorf("counts = %d/%d/%d, want nothing created", issues, sections, submissions)
	}
}

func TestImport_IndexerErrorIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.indexer.err = errors.New("index offline")

	res, _, err := f.importer(f.deps()).Import(context.Background(), f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res == nil {
		t.Fatal("Import() result = nil")
	}

	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Search index not updated" {
			warned = true
		}
	}
	if !warned {
		t.Error("indexer failure was not logged")
	}
}

func TestImport_SearchIndex(t *testing.T) {
	f := newFixture(t)
	deps := f.deps()
	deps.Indexer = search.NewIndexer(f.db, f.files, f.log)

	res, _, err := f.importer(deps).Import(context.Background(), f.request(t, janeDoeRecord, f.writePDF(t, "a.pdf")))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	hits, err := f.db.SearchSubmissions("Doe", 10)
	if err != nil {
		t.Fatalf("SearchSubmissions() error = %v", err)
	}
	if len(hits) != 1 || hits[0].SubmissionID != res.Submission.ID {
		t.Errorf("SearchSubmissions(Doe) = %+v, want submission %d", hits, res.Submission.ID)
	}
}

func TestDescribe(t *testing.T) {
	f := newFixture(t)
	imp := f.importer(f.deps())

	entries := []ErrorEntry{
		newEntry(MissingIssue, map[string]string{"title": "A Study"}),
		newEntry(MissingTitle, nil),
	}
	got := imp.Describe("en_US", entries)
	if !strings.Contains(got[0], `"A Study"`) {
		t.Errorf("Describe()[0] = %q, want the title", got[0])
	}
	if strings.HasPrefix(got[1], "##") {
		t.Errorf("Describe()[1] = %q, want a catalog message", got[1])
	}

	bare := New(Deps{})
	if diff := cmp.Diff(Keys(entries), bare.Describe("en_US", entries)); diff != "" {
		t.Errorf("Describe() without catalog mismatch (-want +got):\n%s", diff)
	}
}
