// Package journal defines the domain types of a journal's published content.
package journal

import "github.com/matsen/bepress/internal/locale"

// Workflow, status and access constants.
const (
	StatusQueued    = 1
	StatusPublished = 3

	StageSubmission = 1
	StageReview     = 3
	StageEditing    = 4
	StageProduction = 5

	AccessOpen = 1

	FileStageProof = 10

	AssocTypeRepresentation = 0x0000209
)

// Role identifiers used by user groups.
const (
	RoleManager   = 0x00000010
	RoleSubEditor = 0x00000011
	RoleAuthor    = 0x00010000
	RoleReviewer  = 0x00001000
	RoleAssistant = 0x00001001
	RoleReader    = 0x00100000
)

// Copyright holder and year basis values of a LicensePolicy.
const (
	CopyrightHolderAuthor  = "author"
	CopyrightHolderContext = "context"
	CopyrightHolderOther   = "other"

	CopyrightYearIssue      = "issue"
	CopyrightYearSubmission = "submission"
)

// Text is a single-valued localized field keyed by locale code.
type Text map[string]string

// Get returns the value for l, or "" if absent.
func (t Text) Get(l locale.Locale) string {
	return t[string(l)]
}

// Journal is the context articles are imported into.
type Journal struct {
	ID            int64         `json:"id" yaml:"id"`
	Path          string        `json:"path" yaml:"path"`
	PrimaryLocale locale.Locale `json:"primary_locale" yaml:"primary_locale"`
	Name          Text          `json:"name" yaml:"name"`
	License       LicensePolicy `json:"license" yaml:"license"`
}

// DisplayName returns the journal name in the primary locale.
func (j Journal) DisplayName() string {
	return j.Name.Get(j.PrimaryLocale)
}

// LicensePolicy holds the journal's default copyright and licensing settings.
type LicensePolicy struct {
	CopyrightHolderType  string `json:"copyright_holder_type,omitempty" yaml:"copyright_holder_type,omitempty"`
	CopyrightHolderOther Text   `json:"copyright_holder_other,omitempty" yaml:"copyright_holder_other,omitempty"`
	CopyrightYearBasis   string `json:"copyright_year_basis,omitempty" yaml:"copyright_year_basis,omitempty"`
	LicenseURL           string `json:"license_url,omitempty" yaml:"license_url,omitempty"`
}
