// Package locale provides locale codes and ordered, locale-keyed text maps
// extracted from XML metadata.
package locale

import (
	"html"
	"strings"

	"github.com/matsen/bepress/internal/xmltree"
)

// Locale is a locale code such as "en_US" or "fr_CA".
type Locale string

// Language returns the two-letter language part of the locale ("en" for "en_US").
func (l Locale) Language() string {
	s := string(l)
	if i := strings.IndexAny(s, "_-"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

func (l Locale) String() string {
	return string(l)
}

// Map holds ordered lists of strings keyed by locale. Locales are iterated
// in the order they were first added.
type Map struct {
	order  []Locale
	values map[Locale][]string
}

// NewMap returns an empty Map.
func NewMap() Map {
	return Map{values: make(map[Locale][]string)}
}

// Single returns a Map holding one value under one locale.
func Single(l Locale, v string) Map {
	m := NewMap()
	m.Add(l, v)
	return m
}

// Add appends v to the list for locale l.
func (m *Map) Add(l Locale, v string) {
	if m.values == nil {
		m.values = make(map[Locale][]string)
	}
	if _, ok := m.values[l]; !ok {
		m.order = append(m.order, l)
	}
	m.values[l] = append(m.values[l], v)
}

// Set replaces the list for locale l.
func (m *Map) Set(l Locale, vs []string) {
	if m.values == nil {
		m.values = make(map[Locale][]string)
	}
	if _, ok := m.values[l]; !ok {
		m.order = append(m.order, l)
	}
	m.values[l] = append([]string(nil), vs...)
}

// Get returns the list stored under l.
func (m Map) Get(l Locale) []string {
	return m.values[l]
}

// Has reports whether l has an entry.
func (m Map) Has(l Locale) bool {
	_, ok := m.values[l]
	return ok
}

// First returns the first value stored under l, or "".
func (m Map) First(l Locale) string {
	if vs := m.values[l]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Last returns the last value stored under l, or "".
func (m Map) Last(l Locale) string {
	if vs := m.values[l]; len(vs) > 0 {
		return vs[len(vs)-1]
	}
	return ""
}

// Locales returns the locales in insertion order.
func (m Map) Locales() []Locale {
	return append([]Locale(nil), m.order...)
}

// Len returns the number of locales.
func (m Map) Len() int {
	return len(m.order)
}

// IsEmpty reports whether the map has no locales.
func (m Map) IsEmpty() bool {
	return len(m.order) == 0
}

// Lasts flattens the map to one value per locale, keeping the last value
// of each list. Assigning a list of values to a single-valued localized
// field one after another leaves the last one in place.
func (m Map) Lasts() map[string]string {
	out := make(map[string]string, len(m.order))
	for _, l := range m.order {
		out[string(l)] = m.Last(l)
	}
	return out
}

// Firsts flattens the map to the first value per locale.
func (m Map) Firsts() map[string]string {
	out := make(map[string]string, len(m.order))
	for _, l := range m.order {
		out[string(l)] = m.First(l)
	}
	return out
}

// Extract reads localized text from node. A single child named singular is
// preferred; otherwise every singular child of a plural container is read.
// Elements without a locale attribute are filed under primary. Text is
// HTML-entity decoded. The result is empty when neither form is present.
func Extract(node *xmltree.Node, singular, plural string, primary Locale) Map {
	m := NewMap()
	if node == nil {
		return m
	}

	if el := node.Child(singular); el != nil {
		m.Add(elementLocale(el, primary), decode(el.Value()))
		return m
	}

	container := node.Child(plural)
	if container == nil {
		return m
	}
	for _, el := range container.ChildrenNamed(singular) {
		m.Add(elementLocale(el, primary), decode(el.Value()))
	}
	return m
}

func elementLocale(el *xmltree.Node, primary Locale) Locale {
	if l := el.Attr("locale"); l != "" {
		return Locale(l)
	}
	return primary
}

func decode(s string) string {
	return html.UnescapeString(s)
}

// WithPrimary returns a copy of m that has an entry under primary. When
// primary is missing, the first inserted locale's values are copied to it.
// The boolean is false when m is empty and nothing could be promoted.
func (m Map) WithPrimary(primary Locale) (Map, bool) {
	if m.IsEmpty() {
		return m, false
	}
	out := NewMap()
	for _, l := range m.order {
		out.Set(l, m.values[l])
	}
	if !out.Has(primary) {
		out.Set(primary, m.values[m.order[0]])
	}
	return out, true
}

// SplitTerms splits every value on ';' into separate terms. Terms are
// trimmed and empty terms are dropped.
func SplitTerms(m Map) Map {
	out := NewMap()
	for _, l := range m.order {
		var terms []string
		for _, v := range m.values[l] {
			for _, term := range strings.Split(v, ";") {
				if term = strings.TrimSpace(term); term != "" {
					terms = append(terms, term)
				}
			}
		}
		out.Set(l, terms)
	}
	return out
}
