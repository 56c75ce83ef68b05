package importer

import (
	"errors"
	"fmt"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
	"github.com/matsen/bepress/internal/xmltree"
	"github.com/sirupsen/logrus"
)

// run holds the state of a single Import call.
type run struct {
	imp     *Importer
	req     Request
	log     logrus.FieldLogger
	primary locale.Locale
	article *xmltree.Node

	titles locale.Map // Extracted titles with the primary locale filled in
	title  string     // Primary-locale title used in error messages

	entries []ErrorEntry
	undo    []undoAction
	result  Result

	// Values read from the article's fields container.
	licenseURL  string
	pubDateText string
	doi         string
}

func newRun(imp *Importer, req Request) *run {
	if req.GenreKey == "" {
		req.GenreKey = DefaultGenreKey
	}
	r := &run{imp: imp, req: req}

	fields := logrus.Fields{"volume": req.Volume, "number": req.Number}
	if req.Journal != nil {
		r.primary = req.Journal.PrimaryLocale
		fields["journal"] = req.Journal.Path
	}
	r.log = imp.log.WithFields(fields)

	r.article = documentNode(req.Root)
	r.titles, _ = locale.Extract(r.article, "title", "titles", r.primary).WithPrimary(r.primary)
	r.title = r.titles.First(r.primary)
	return r
}

// documentNode returns the article element of an XML record.
func documentNode(root *xmltree.Node) *xmltree.Node {
	if root == nil {
		return nil
	}
	if root.Name == "document" {
		return root
	}
	return root.Child("document")
}

// checkPreconditions reports whether the request carries every input an
// import needs. An empty volume or number is reported as an entry.
func (r *run) checkPreconditions() ([]ErrorEntry, bool) {
	req := r.req
	if req.Volume == "" || req.Number == "" {
		return []ErrorEntry{newEntry(MissingVolumeNumber, r.titleParams())}, false
	}
	if req.Journal == nil || req.User == nil || req.Editor == nil || req.Root == nil ||
		len(req.PDFPaths) == 0 || req.DefaultEmail == "" || r.article == nil {
		return nil, false
	}
	return nil, true
}

func (r *run) titleParams() map[string]string {
	return map[string]string{"title": r.title}
}

// fail records a fatal error entry and returns errAborted.
func (r *run) fail(k Kind, params map[string]string) error {
	r.entries = append(r.entries, newEntry(k, params))
	return errAborted
}

// abort undoes the import and builds the failure return of Import.
func (r *run) abort(cause error) (*Result, []ErrorEntry, error) {
	failure := ErrImportFailed
	if errors.Is(cause, errAborted) {
		r.log.WithField("errors", Keys(r.entries)).Warn("Import aborted")
	} else {
		r.entries = append(r.entries, newEntry(ImportFailed, map[string]string{
			"title":  r.title,
			"reason": cause.Error(),
		}))
		r.log.WithError(cause).Error("Import failed")
		failure = fmt.Errorf("%w: %w", ErrImportFailed, cause)
	}

	if errs := r.rollback(); len(errs) > 0 {
		r.entries = append(r.entries, newEntry(RollbackFailed, map[string]string{
			"title":  r.title,
			"reason": errors.Join(errs...).Error(),
		}))
		r.log.WithField("failures", len(errs)).Error("Rollback incomplete")
		return nil, r.entries, &RollbackError{Cause: failure, Errs: errs}
	}
	return nil, r.entries, failure
}

// undoAction reverses one created dependency.
type undoAction struct {
	name string
	fn   func() error
}

func (r *run) track(name string, fn func() error) {
	r.undo = append(r.undo, undoAction{name: name, fn: fn})
}

// rollback runs the undo actions in reverse order of creation. Every action
// runs even when an earlier one fails.
func (r *run) rollback() []error {
	var errs []error
	for i := len(r.undo) - 1; i >= 0; i-- {
		a := r.undo[i]
		if err := a.fn(); err != nil {
			errs = append(errs, fmt.Errorf("undoing %s: %w", a.name, err))
			continue
		}
		r.log.WithField("undo", a.name).Debug("Rolled back")
	}
	r.undo = nil
	return errs
}

// journalName returns the journal's display name in the primary locale.
func (r *run) journalName() string {
	return r.req.Journal.DisplayName()
}

func (r *run) journalID() int64 {
	return r.req.Journal.ID
}

// textIn returns a single-valued localized field holding v under l.
func textIn(l locale.Locale, v string) journal.Text {
	return journal.Text{string(l): v}
}
