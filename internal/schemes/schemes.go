// Package schemes holds the built-in catalogue of government schemes for
// farmers. Each scheme is a markdown file with YAML frontmatter, one file
// per language; missing translations fall back to English.
package schemes

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

//go:embed content
var content embed.FS

// FallbackLanguage is used for schemes without a translation.
const FallbackLanguage = "en"

var ErrNotFound = errors.New("scheme not found")

// Section is a titled list in a scheme body.
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Scheme is one catalogue entry in one language.
type Scheme struct {
	ID          string  `json:"id"`
	Order       int     `json:"order"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color"`
	Language    string  `json:"language"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Benefits    Section `json:"benefits"`
	Eligibility Section `json:"eligibility"`
	Steps       Section `json:"steps"`
}

// Catalog is the parsed scheme catalogue.
type Catalog struct {
	// byLang maps language -> scheme id -> scheme.
	byLang map[string]map[string]Scheme
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return LoadFS(content, "content")
}

// LoadFS parses <root>/<lang>/<id>.md files from fsys.
func LoadFS(fsys fs.FS, root string) (*Catalog, error) {
	p := newParser()
	c := &Catalog{byLang: map[string]map[string]Scheme{}}

	langs, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read schemes: %w", err)
	}
	for _, l := range langs {
		if !l.IsDir() {
			continue
		}
		lang := l.Name()
		files, err := fs.ReadDir(fsys, path.Join(root, lang))
		if err != nil {
			return nil, fmt.Errorf("read schemes %s: %w", lang, err)
		}
		for _, f := range files {
			if f.IsDir() || path.Ext(f.Name()) != ".md" {
				continue
			}
			name := path.Join(root, lang, f.Name())
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", name, err)
			}
			s, err := p.parse(data)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", name, err)
			}
			if s.ID == "" {
				s.ID = strings.TrimSuffix(f.Name(), ".md")
			}
			s.Language = lang
			if c.byLang[lang] == nil {
				c.byLang[lang] = map[string]Scheme{}
			}
			c.byLang[lang][s.ID] = s
		}
	}
	if len(c.byLang[FallbackLanguage]) == 0 {
		return nil, fmt.Errorf("no %s schemes in catalogue", FallbackLanguage)
	}
	return c, nil
}

// List returns every scheme in lang, in catalogue order.
func (c *Catalog) List(lang string) []Scheme {
	out := make([]Scheme, 0, len(c.byLang[FallbackLanguage]))
	for id := range c.byLang[FallbackLanguage] {
		s, _ := c.Get(id, lang)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns scheme id in lang, or in English when untranslated.
func (c *Catalog) Get(id, lang string) (Scheme, error) {
	if s, ok := c.byLang[lang][id]; ok {
		return s, nil
	}
	if s, ok := c.byLang[FallbackLanguage][id]; ok {
		return s, nil
	}
	return Scheme{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Languages lists the languages with at least one scheme.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.byLang))
	for l := range c.byLang {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

type schemeParser struct {
	md goldmark.Markdown
}

func newParser() *schemeParser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			meta.Meta,
		),
	)
	return &schemeParser{md: md}
}

// parse reads the frontmatter and the three body sections. Sections are the
// level-two headings in the order benefits, eligibility, steps.
func (p *schemeParser) parse(src []byte) (Scheme, error) {
	ctx := parser.NewContext()
	doc := p.md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))
	fm, err := meta.TryGet(ctx)
	if err != nil {
		return Scheme{}, fmt.Errorf("frontmatter: %w", err)
	}

	s := Scheme{
		ID:          stringField(fm, "id"),
		Icon:        stringField(fm, "icon"),
		Color:       stringField(fm, "color"),
		Title:       stringField(fm, "title"),
		Description: stringField(fm, "description"),
		Order:       intField(fm, "order"),
	}
	if s.Title == "" {
		return Scheme{}, errors.New("missing title")
	}

	sections := []*Section{&s.Benefits, &s.Eligibility, &s.Steps}
	idx := -1
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level != 2 {
				continue
			}
			idx++
			if idx < len(sections) {
				sections[idx].Title = nodeText(node, src)
			}
		case *ast.List:
			if idx < 0 || idx >= len(sections) {
				continue
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				sections[idx].Items = append(sections[idx].Items, nodeText(item, src))
			}
		}
	}
	return s, nil
}

func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func stringField(fm map[string]interface{}, key string) string {
	if v, ok := fm[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func intField(fm map[string]interface{}, key string) int {
	switch v := fm[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
