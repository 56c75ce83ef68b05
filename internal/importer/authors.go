package importer

import (
	"fmt"
	"strings"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/locale"
	"github.com/matsen/bepress/internal/xmltree"
)

// mapAuthors creates the publication's authors from the article's authors
// container. An article without one is credited to the journal.
func (r *run) mapAuthors(sub journal.Submission, pub journal.Publication) error {
	groupID, err := r.authorGroupID()
	if err != nil {
		return err
	}

	var authors []journal.Author
	container := r.article.Child("authors")
	if container == nil {
		authors = []journal.Author{r.placeholderAuthor()}
	} else {
		for i, node := range container.ChildrenNamed("author") {
			authors = append(authors, r.authorFromNode(node, i))
		}
	}

	for _, a := range authors {
		a.SubmissionID = sub.ID
		a.PublicationID = pub.ID
		a.UserGroupID = groupID
		created, err := r.imp.deps.Authors.CreateAuthor(a)
		if err != nil {
			return fmt.Errorf("creating author %d: %w", a.Seq, err)
		}
		r.result.Authors = append(r.result.Authors, created)
	}
	r.log.WithField("authors", len(r.result.Authors)).Debug("Mapped authors")
	return nil
}

// authorGroupID returns the journal's first author group, or 0 if it has none.
func (r *run) authorGroupID() (int64, error) {
	groups, err := r.imp.deps.Directory.GetUserGroupsByRole(r.journalID(), journal.RoleAuthor)
	if err != nil {
		return 0, fmt.Errorf("listing author groups: %w", err)
	}
	if len(groups) == 0 {
		return 0, nil
	}
	return groups[0].ID, nil
}

func (r *run) placeholderAuthor() journal.Author {
	return journal.Author{
		GivenName:       textIn(r.primary, r.journalName()),
		FamilyName:      textIn(r.primary, ""),
		Email:           r.req.DefaultEmail,
		Seq:             1,
		PrimaryContact:  true,
		IncludeInBrowse: true,
	}
}

// authorFromNode maps the index-th author element.
func (r *run) authorFromNode(node *xmltree.Node, index int) journal.Author {
	given := locale.Extract(node, "fname", "fnames", r.primary)
	family := locale.Extract(node, "lname", "lnames", r.primary)

	// A lone family name is the author's only name.
	if given.IsEmpty() && !family.IsEmpty() {
		given, family = family, locale.NewMap()
	}
	if given.IsEmpty() {
		given = locale.Single(r.primary, r.journalName())
	}
	if family.IsEmpty() {
		family = locale.Single(r.primary, "")
	}

	a := journal.Author{
		GivenName:       journal.Text(given.Lasts()),
		FamilyName:      journal.Text(family.Lasts()),
		Affiliation:     textIn(r.primary, ""),
		Email:           r.req.DefaultEmail,
		Seq:             index + 1,
		PrimaryContact:  index == 0,
		IncludeInBrowse: true,
	}

	middle := locale.Extract(node, "mname", "mnames", r.primary)
	suffix := locale.Extract(node, "suffix", "suffixes", r.primary)
	if preferred := locale.Extract(node, "preferredname", "preferrednames", r.primary); !preferred.IsEmpty() {
		a.PreferredPublicName = journal.Text(preferred.Firsts())
	} else if !middle.IsEmpty() || !suffix.IsEmpty() {
		a.PreferredPublicName = make(journal.Text, given.Len())
		for _, l := range given.Locales() {
			a.PreferredPublicName[string(l)] = joinNames(given.First(l), middle.First(l), family.First(l), suffix.First(l))
		}
	}

	if affiliations := locale.Extract(node, "institution", "institutions", r.primary); !affiliations.IsEmpty() {
		a.Affiliation = journal.Text(affiliations.Lasts())
	}
	if email, ok := node.ChildValue("email"); ok {
		a.Email = email
	}
	return a
}

// joinNames joins the non-empty name parts with single spaces.
func joinNames(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
