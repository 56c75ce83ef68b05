// Package i18n renders localized messages from embedded catalogs.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/matsen/bepress/internal/locale"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when a message is missing from the requested locale.
const DefaultLocale locale.Locale = "en_US"

//go:embed locales/*.yml
var catalogFS embed.FS

var paramPattern = regexp.MustCompile(`\{\$([A-Za-z0-9_]+)\}`)

// Catalog maps message keys to templates per locale.
type Catalog struct {
	messages map[locale.Locale]map[string]string
}

// Load reads the embedded catalogs.
func Load() (*Catalog, error) {
	entries, err := catalogFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("listing catalogs: %w", err)
	}

	c := &Catalog{messages: make(map[locale.Locale]map[string]string)}
	for _, e := range entries {
		name := e.Name()
		data, err := catalogFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", name, err)
		}
		var msgs map[string]string
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parsing catalog %s: %w", name, err)
		}
		c.messages[locale.Locale(strings.TrimSuffix(name, path.Ext(name)))] = msgs
	}
	return c, nil
}

// MustLoad is like Load but panics on error. The catalogs are embedded, so a
// failure is a build defect.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Has reports whether key exists in l or the default locale.
func (c *Catalog) Has(l locale.Locale, key string) bool {
	_, ok := c.lookup(l, key)
	return ok
}

// Translate renders key in l, substituting {$name} placeholders from params.
// Missing messages fall back to the default locale, then to "##key##".
// Placeholders without a parameter are left in place.
func (c *Catalog) Translate(l locale.Locale, key string, params map[string]string) string {
	tmpl, ok := c.lookup(l, key)
	if !ok {
		return "##" + key + "##"
	}
	return paramPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := paramPattern.FindStringSubmatch(m)[1]
		if v, ok := params[name]; ok {
			return v
		}
		return m
	})
}

func (c *Catalog) lookup(l locale.Locale, key string) (string, bool) {
	if msg, ok := c.messages[l][key]; ok {
		return msg, true
	}
	msg, ok := c.messages[DefaultLocale][key]
	return msg, ok
}
