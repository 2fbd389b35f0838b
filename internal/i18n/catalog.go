package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is the base catalog every lookup falls back to.
const DefaultLanguage = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// Catalog holds the string table of every language with a locale file.
type Catalog struct {
	tables map[string]map[string]string
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedLocales)
}

// MustLoadEmbedded is LoadEmbedded for package initialization.
func MustLoadEmbedded() *Catalog {
	c, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFromFS loads locales/<code>.yaml files, each a flat key: string map.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	c := &Catalog{tables: make(map[string]map[string]string, len(paths))}
	for _, p := range paths {
		code, err := Normalize(strings.TrimSuffix(path.Base(p), path.Ext(p)))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var table map[string]string
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		for key, value := range table {
			if strings.TrimSpace(key) == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", p)
			}
			if value == "" {
				// Empty strings would defeat the fallback to the base catalog.
				delete(table, key)
			}
		}
		c.tables[code] = table
	}

	if _, ok := c.tables[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("base language %s is not defined in catalogs", DefaultLanguage)
	}
	return c, nil
}

// Has reports whether code has a catalog.
func (c *Catalog) Has(code string) bool {
	_, ok := c.tables[code]
	return ok
}

// Languages returns the catalog language codes, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.tables))
	for code := range c.tables {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Keys returns the base catalog's keys, sorted.
func (c *Catalog) Keys() []string {
	base := c.tables[DefaultLanguage]
	out := make([]string, 0, len(base))
	for k := range base {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the string for key in code, then in the base catalog, then
// the key itself. The result is never empty for a non-empty key.
func (c *Catalog) Lookup(code, key string) string {
	if s, ok := c.tables[code][key]; ok {
		return s
	}
	if s, ok := c.tables[DefaultLanguage][key]; ok {
		return s
	}
	return key
}

// Missing lists base keys that code does not translate.
func (c *Catalog) Missing(code string) []string {
	table := c.tables[code]
	var out []string
	for _, k := range c.Keys() {
		if _, ok := table[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
