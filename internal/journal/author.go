package journal

import (
	"strings"

	"github.com/matsen/bepress/internal/locale"
)

// Author is a contributor to a publication.
type Author struct {
	ID                  int64  `json:"id"`
	SubmissionID        int64  `json:"submission_id"`
	PublicationID       int64  `json:"publication_id"`
	GivenName           Text   `json:"given_name"`
	FamilyName          Text   `json:"family_name"`
	PreferredPublicName Text   `json:"preferred_public_name,omitempty"`
	Affiliation         Text   `json:"affiliation"`
	Email               string `json:"email"`
	Seq                 int    `json:"seq"`
	PrimaryContact      bool   `json:"primary_contact"`
	IncludeInBrowse     bool   `json:"include_in_browse"`
	UserGroupID         int64  `json:"user_group_id,omitempty"`
}

// FullName returns the preferred public name in l if set, otherwise the
// given and family names joined by a space.
func (a Author) FullName(l locale.Locale) string {
	if p := a.PreferredPublicName.Get(l); p != "" {
		return p
	}
	return strings.TrimSpace(a.GivenName.Get(l) + " " + a.FamilyName.Get(l))
}

// AuthorString lists authors in sequence order as "A, B; C (Group)". Authors
// are separated by ", " within a group and by "; " between groups, and a
// group's name follows its last author when the group has ShowTitle set.
func AuthorString(authors []Author, groups []UserGroup, l locale.Locale) string {
	groupTitle := func(id int64) string {
		for _, g := range groups {
			if g.ID == id {
				if g.ShowTitle {
					return " (" + g.Name.Get(l) + ")"
				}
				return ""
			}
		}
		return ""
	}

	var sb strings.Builder
	var last int64
	for i, a := range authors {
		if i > 0 {
			if a.UserGroupID != last {
				sb.WriteString(groupTitle(last))
				sb.WriteString("; ")
			} else {
				sb.WriteString(", ")
			}
		}
		sb.WriteString(a.FullName(l))
		last = a.UserGroupID
	}
	if len(authors) > 0 {
		sb.WriteString(groupTitle(last))
	}
	return sb.String()
}
