package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matsen/bepress/internal/filestore"
	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
	"github.com/matsen/bepress/internal/pdf"
	"github.com/sirupsen/logrus"
)

// GalleyLabel is the label of every imported galley.
const GalleyLabel = "PDF"

// galleyTarget is one file to attach and the locale to attach it in.
type galleyTarget struct {
	path   string
	locale locale.Locale
}

// attachGalleys attaches the request's files to the publication. When the
// article declares galleys, each declared identifier selects the first file
// whose name contains it. Otherwise every file is attached in the primary
// locale.
func (r *run) attachGalleys() error {
	targets := r.galleyTargets()
	if len(targets) == 0 {
		r.log.Warn("No galley files matched")
		return nil
	}

	genre, err := r.imp.deps.Directory.GetGenreByKey(strings.ToUpper(r.req.GenreKey), r.journalID())
	if err != nil {
		return fmt.Errorf("finding genre %q: %w", r.req.GenreKey, err)
	}
	if genre == nil {
		return r.fail(MissingGenre, map[string]string{"title": r.title, "genre": r.req.GenreKey})
	}

	for _, t := range targets {
		if err := r.attach(t, *genre); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) galleyTargets() []galleyTarget {
	declared := locale.Extract(r.article, "galley", "galleys", r.primary)
	if declared.IsEmpty() {
		targets := make([]galleyTarget, len(r.req.PDFPaths))
		for i, p := range r.req.PDFPaths {
			targets[i] = galleyTarget{path: p, locale: r.primary}
		}
		return targets
	}

	var targets []galleyTarget
	for _, l := range declared.Locales() {
		for _, id := range declared.Get(l) {
			if id == "" {
				continue
			}
			p, ok := matchPath(r.req.PDFPaths, id)
			if !ok {
				r.log.WithField("galley", id).Warn("No file matches declared galley")
				continue
			}
			targets = append(targets, galleyTarget{path: p, locale: l})
		}
	}
	return targets
}

// matchPath returns the first path whose file name contains id.
func matchPath(paths []string, id string) (string, bool) {
	for _, p := range paths {
		if strings.Contains(filepath.Base(p), id) {
			return p, true
		}
	}
	return "", false
}

// attach creates a galley for one file, stores the file and links the two
// through a proof submission file.
func (r *run) attach(t galleyTarget, genre journal.Genre) error {
	deps := r.imp.deps
	sub := r.result.Submission
	name := filepath.Base(t.path)

	galley, err := deps.Galleys.CreateGalley(journal.Galley{
		PublicationID: r.result.Publication.ID,
		Locale:        t.locale,
		Name:          textIn(r.primary, name),
		Label:         GalleyLabel,
		Seq:           1,
	})
	if err != nil {
		return fmt.Errorf("creating galley for %s: %w", name, err)
	}

	fileID, err := deps.Files.Add(t.path, filestore.ArticleKey(r.journalID(), sub.ID, filepath.Ext(name)))
	if err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}
	r.track("file "+fileID, func() error { return deps.Files.Remove(fileID) })

	now := r.imp.now()
	file, err := deps.Galleys.CreateSubmissionFile(journal.SubmissionFile{
		SubmissionID:   sub.ID,
		FileID:         fileID,
		GenreID:        genre.ID,
		FileStage:      journal.FileStageProof,
		UploaderUserID: r.req.Editor.ID,
		AssocType:      journal.AssocTypeRepresentation,
		AssocID:        galley.ID,
		Name:           textIn(t.locale, name),
		Pages:          r.pageCount(fileID),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("recording file %s: %w", name, err)
	}

	galley.SubmissionFileID = file.ID
	linked, err := deps.Galleys.UpdateGalley(galley)
	if err != nil {
		return fmt.Errorf("linking galley %d: %w", galley.ID, err)
	}
	galley = linked

	r.result.Galleys = append(r.result.Galleys, galley)
	r.result.Files = append(r.result.Files, file)
	r.log.WithFields(logrus.Fields{
		"galley": galley.ID,
		"file":   fileID,
		"locale": t.locale,
	}).Debug("Attached galley")
	return nil
}

// pageCount returns the number of pages of a stored PDF, or 0 if it cannot
// be read.
func (r *run) pageCount(fileID string) int {
	f, size, err := r.imp.deps.Files.Open(fileID)
	if err != nil {
		r.log.WithError(err).Debug("Page count unavailable")
		return 0
	}
	defer f.Close()

	info, err := pdf.Inspect(f, size)
	if err != nil {
		r.log.WithError(err).WithField("file", fileID).Debug("Page count unavailable")
		return 0
	}
	return info.Pages
}
