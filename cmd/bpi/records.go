package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/matsen/bepress/internal/importer"
	"github.com/matsen/bepress/internal/storage"
)

// record is one article of a bepress export: its XML record and galley files.
type record struct {
	Source string   `json:"source"`
	Volume string   `json:"volume"`
	Number string   `json:"number"`
	Files  []string `json:"files"`
}

// metadataNames are the file names of article records in a bepress export.
var metadataNames = map[string]bool{
	"metadata.xml":     true,
	"metadata.xml.gz":  true,
	"metadata.xml.zst": true,
}

// volIssPattern finds the volume and issue in an export path such as
// "vol5/iss2/3".
var volIssPattern = regexp.MustCompile(`(?:^|/)vol(\d+)/iss(\d+)(?:/|$)`)

// discoverRecords walks a bepress export and returns its article records in
// path order. Volume and number come from the vol*/iss* directories; the
// galleys are the PDFs next to each record.
func discoverRecords(root string) ([]record, error) {
	var records []record
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !metadataNames[d.Name()] {
			return nil
		}

		dir := filepath.Dir(path)
		rec := record{Source: path}
		if rel, err := filepath.Rel(root, dir); err == nil {
			if m := volIssPattern.FindStringSubmatch(filepath.ToSlash(rel)); m != nil {
				rec.Volume, rec.Number = m[1], m[2]
			}
		}
		if rec.Files, err = pdfsIn(dir); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return records, nil
}

// pdfsIn lists the PDF files directly inside dir in name order.
func pdfsIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// importRecord imports rec and returns the ledger entry describing the outcome.
func (env *importEnv) importRecord(ctx context.Context, rec record) (storage.LedgerEntry, *importer.Result, error) {
	entry := storage.LedgerEntry{
		Time:    time.Now().UTC(),
		Source:  rec.Source,
		Journal: env.journal.Path,
		Volume:  rec.Volume,
		Number:  rec.Number,
		Outcome: storage.OutcomeFailed,
	}

	req, err := env.request(rec)
	if err != nil {
		entry.Errors = []string{err.Error()}
		return entry, nil, err
	}

	res, entries, err := env.importer.Import(ctx, req)
	if err != nil {
		entry.Errors = env.importer.Describe(env.journal.PrimaryLocale, entries)
		if len(entry.Errors) == 0 {
			entry.Errors = []string{err.Error()}
		}
		return entry, nil, err
	}

	entry.Outcome = storage.OutcomeImported
	entry.IssueID = res.Issue.ID
	entry.SectionID = res.Section.ID
	entry.SubmissionID = res.Submission.ID
	return entry, res, nil
}

// exitCodeFor maps an import error to the command's exit code.
func exitCodeFor(err error) int {
	var rbErr *importer.RollbackError
	switch {
	case errors.As(err, &rbErr):
		return ExitRollbackFailed
	case errors.Is(err, importer.ErrImportFailed):
		return ExitImportFailed
	case errors.Is(err, importer.ErrPrecondition):
		return ExitDataError
	default:
		return ExitError
	}
}
