package importer

import (
	"errors"
	"fmt"
	"strings"
)

// KeyPrefix is the catalog prefix shared by all import error messages.
const KeyPrefix = "plugins.importexport.bepress.import.error."

// Kind classifies a failed import.
type Kind int

const (
	MissingVolumeNumber Kind = iota + 1
	MissingPubDate
	MissingIssue
	MissingSection
	MissingTitle
	MissingEditorGroupID
	MissingGenre
	ImportFailed
	RollbackFailed
)

var kindKeys = map[Kind]string{
	MissingVolumeNumber:  "missingVolumeNumber",
	MissingPubDate:       "missingPubDate",
	MissingIssue:         "missingIssue",
	MissingSection:       "missingSection",
	MissingTitle:         "articleTitleMissing",
	MissingEditorGroupID: "missingEditorGroupId",
	MissingGenre:         "missingGenre",
	ImportFailed:         "importFailed",
	RollbackFailed:       "rollbackFailed",
}

// Key returns the catalog key of the message describing k.
func (k Kind) Key() string {
	if s, ok := kindKeys[k]; ok {
		return KeyPrefix + s
	}
	return KeyPrefix + "unknown"
}

func (k Kind) String() string {
	if s, ok := kindKeys[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrorEntry is one localizable error reported by a failed import.
type ErrorEntry struct {
	Kind   Kind              `json:"-"`
	Key    string            `json:"key"`
	Params map[string]string `json:"params,omitempty"`
}

func newEntry(k Kind, params map[string]string) ErrorEntry {
	return ErrorEntry{Kind: k, Key: k.Key(), Params: params}
}

// Keys returns the message keys of entries in order.
func Keys(entries []ErrorEntry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

var (
	// ErrPrecondition is returned when the request lacks a required input.
	// Nothing is created or tracked.
	ErrPrecondition = errors.New("import preconditions not met")

	// ErrImportFailed is returned when an import was aborted and rolled back.
	ErrImportFailed = errors.New("import failed")
)

// RollbackError reports that undoing a failed import left state behind.
type RollbackError struct {
	Cause error   // Why the import was aborted
	Errs  []error // Every undo step that failed
}

func (e *RollbackError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("rollback after failed import incomplete: %s", strings.Join(msgs, "; "))
}

func (e *RollbackError) Unwrap() []error {
	return append([]error{e.Cause}, e.Errs...)
}
