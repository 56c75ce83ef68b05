package locale

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matsen/bepress/internal/xmltree"
)

const primary = Locale("en_US")

func mustParse(t *testing.T, s string) *xmltree.Node {
	t.Helper()
	n, err := xmltree.ParseString(s)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return n
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		want    map[string][]string
		locales []Locale
	}{
		{
			name:    "singular without locale uses primary",
			xml:     `<document><title>A Study</title></document>`,
			want:    map[string][]string{"en_US": {"A Study"}},
			locales: []Locale{"en_US"},
		},
		{
			name:    "singular with locale",
			xml:     `<document><title locale="fr_CA">Une étude</title></document>`,
			want:    map[string][]string{"fr_CA": {"Une étude"}},
			locales: []Locale{"fr_CA"},
		},
		{
			name: "plural groups by locale in document order",
			xml: `<document><keywords>
				<keyword locale="fr_CA">un</keyword>
				<keyword>one</keyword>
				<keyword locale="fr_CA">deux</keyword>
				<keyword>two</keyword>
			</keywords></document>`,
			want:    map[string][]string{"fr_CA": {"un", "deux"}, "en_US": {"one", "two"}},
			locales: []Locale{"fr_CA", "en_US"},
		},
		{
			name:    "singular wins over plural",
			xml:     `<document><keyword>solo</keyword><keywords><keyword>a</keyword></keywords></document>`,
			want:    map[string][]string{"en_US": {"solo"}},
			locales: []Locale{"en_US"},
		},
		{
			name:    "html entities decoded",
			xml:     `<document><abstract>Caf&eacute; &amp;amp; co</abstract></document>`,
			want:    map[string][]string{"en_US": {"Café & co"}},
			locales: []Locale{"en_US"},
		},
		{
			name: "neither form present",
			xml:  `<document><other/></document>`,
			want: map[string][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.xml)
			single, plural := "title", "titles"
			switch {
			case root.Child("keyword") != nil || root.Child("keywords") != nil:
				single, plural = "keyword", "keywords"
			case root.Child("abstract") != nil:
				single, plural = "abstract", "abstracts"
			}

			got := Extract(root, single, plural, primary)
			gotMap := make(map[string][]string)
			for _, l := range got.Locales() {
				gotMap[string(l)] = got.Get(l)
			}
			if diff := cmp.Diff(tt.want, gotMap); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.locales, got.Locales()); diff != "" {
				t.Errorf("Locales() order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_NilNode(t *testing.T) {
	if got := Extract(nil, "title", "titles", primary); !got.IsEmpty() {
		t.Errorf("Extract(nil) = %v, want empty", got.Locales())
	}
}

func TestWithPrimary(t *testing.T) {
	t.Run("already has primary", func(t *testing.T) {
		m := NewMap()
		m.Add("fr_CA", "Une étude")
		m.Add(primary, "A Study")
		got, ok := m.WithPrimary(primary)
		if !ok || got.First(primary) != "A Study" {
			t.Errorf("WithPrimary() = %q, %v; want A Study, true", got.First(primary), ok)
		}
		if got.Len() != 2 {
			t.Errorf("Len() = %d, want 2", got.Len())
		}
	})

	t.Run("promotes first inserted locale", func(t *testing.T) {
		m := NewMap()
		m.Add("de_DE", "Eine Studie")
		m.Add("fr_CA", "Une étude")
		got, ok := m.WithPrimary(primary)
		if !ok {
			t.Fatal("WithPrimary() ok = false")
		}
		if got.First(primary) != "Eine Studie" {
			t.Errorf("promoted title = %q, want Eine Studie", got.First(primary))
		}
		if m.Has(primary) {
			t.Error("WithPrimary() mutated the receiver")
		}
	})

	t.Run("empty map", func(t *testing.T) {
		if _, ok := NewMap().WithPrimary(primary); ok {
			t.Error("WithPrimary() on empty map should report false")
		}
	})
}

func TestSplitTerms(t *testing.T) {
	m := NewMap()
	m.Add(primary, "ecology; policy")
	m.Add(primary, "climate")
	m.Add("fr_CA", "écologie;;politique")

	got := SplitTerms(m)
	if diff := cmp.Diff([]string{"ecology", "policy", "climate"}, got.Get(primary)); diff != "" {
		t.Errorf("en_US terms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"écologie", "politique"}, got.Get("fr_CA")); diff != "" {
		t.Errorf("fr_CA terms mismatch (-want +got):\n%s", diff)
	}
}

func TestLastsAndFirsts(t *testing.T) {
	m := NewMap()
	m.Add(primary, "one")
	m.Add(primary, "two")
	if got := m.Lasts()["en_US"]; got != "two" {
		t.Errorf("Lasts() = %q, want two", got)
	}
	if got := m.Firsts()["en_US"]; got != "one" {
		t.Errorf("Firsts() = %q, want one", got)
	}
}

func TestLanguage(t *testing.T) {
	tests := map[Locale]string{"en_US": "en", "fr-CA": "fr", "de": "de", "PT_BR": "pt"}
	for in, want := range tests {
		if got := in.Language(); got != want {
			t.Errorf("%q.Language() = %q, want %q", in, got, want)
		}
	}
}
