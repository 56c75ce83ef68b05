package importer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/xmltree"
	"github.com/sirupsen/logrus"
)

// DefaultSectionName is used when an article declares no document type.
const DefaultSectionName = "Articles"

const sectionPolicyKey = "section.default.policy"

// resolveSection finds the section named by the article's document type or
// creates it. Sections are shared between articles and are never rolled back.
func (r *run) resolveSection() error {
	name := sectionName(r.article)
	sections := r.imp.deps.Sections

	existing, err := sections.FindSectionByTitle(name, r.journalID(), r.primary)
	if err != nil {
		return fmt.Errorf("finding section %q: %w", name, err)
	}
	if existing != nil {
		r.log.WithField("section", existing.ID).Debug("Reusing section")
		r.result.Section = *existing
		return nil
	}

	created, err := sections.CreateSection(journal.Section{
		JournalID:            r.journalID(),
		Title:                textIn(r.primary, name),
		Abbrev:               textIn(r.primary, sectionAbbrev(name)),
		Policy:               textIn(r.primary, r.translate(sectionPolicyKey)),
		AbstractsNotRequired: true,
		MetaIndexed:          true,
		MetaReviewed:         false,
		EditorRestricted:     true,
		HideTitle:            false,
		HideAuthor:           false,
	})
	if err != nil || created.ID == 0 {
		r.log.WithError(err).WithField("name", name).Warn("Section not created")
		return r.fail(MissingSection, r.titleParams())
	}

	r.result.Section = created
	r.result.SectionCreated = true
	r.log.WithFields(logrus.Fields{"section": created.ID, "name": name}).Info("Created section")
	return nil
}

// sectionName derives a section name from the article's document-type, or
// its type when the document-type is absent or empty.
func sectionName(article *xmltree.Node) string {
	raw, _ := article.ChildValue("document-type")
	if raw == "" {
		raw, _ = article.ChildValue("type")
	}
	name := strings.TrimSpace(titleWords(strings.ToLower(strings.ReplaceAll(raw, "_", " "))))
	if name == "" {
		return DefaultSectionName
	}
	return name
}

// titleWords upper-cases the first letter of every whitespace-separated word.
func titleWords(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	start := true
	for _, c := range s {
		if start {
			sb.WriteRune(unicode.ToUpper(c))
		} else {
			sb.WriteRune(c)
		}
		start = unicode.IsSpace(c)
	}
	return sb.String()
}

func sectionAbbrev(name string) string {
	runes := []rune(name)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes))
}

// translate renders key in the primary locale, or "" without a catalog.
func (r *run) translate(key string) string {
	if r.imp.deps.Catalog == nil {
		return ""
	}
	return r.imp.deps.Catalog.Translate(r.primary, key, nil)
}
