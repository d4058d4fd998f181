package email

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var defaultTemplates embed.FS

// Renderer turns a markdown mail template into sanitized HTML.
// Templates are executed with text/template first and the result is parsed
// as markdown. User supplied values must go through the escape function,
// otherwise a name like "[Confirm](https://...)" turns into a link.
type Renderer struct {
	templates *template.Template
	md        goldmark.Markdown
	policy    *bluemonday.Policy
}

// NewRenderer loads the built-in templates.
func NewRenderer() (*Renderer, error) {
	return NewRendererFS(defaultTemplates, "templates")
}

// NewRendererFS loads every *.md file under dir. A template is addressed by
// its file name without extension.
func NewRendererFS(fsys fs.FS, dir string) (*Renderer, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no mail templates found in %s", dir)
	}

	root := template.New("mail").Option("missingkey=error").Funcs(template.FuncMap{
		"escape": EscapeMarkdown,
	})
	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(path.Base(file), ".md")
		if _, err := root.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse mail template %s: %w", name, err)
		}
	}

	return &Renderer{
		templates: root,
		md:        goldmark.New(goldmark.WithExtensions(extension.Strikethrough)),
		policy:    bluemonday.UGCPolicy(),
	}, nil
}

func (r *Renderer) Has(name string) bool {
	return r.templates.Lookup(name) != nil
}

func (r *Renderer) Render(name string, vars map[string]any) (string, error) {
	tmpl := r.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("mail template %s not found", name)
	}

	var source bytes.Buffer
	if err := tmpl.Execute(&source, vars); err != nil {
		return "", fmt.Errorf("failed to execute mail template %s: %w", name, err)
	}

	var html bytes.Buffer
	if err := r.md.Convert(source.Bytes(), &html); err != nil {
		return "", fmt.Errorf("failed to render mail template %s: %w", name, err)
	}

	return r.policy.Sanitize(html.String()), nil
}

// markdownEscaper backslash-escapes the ASCII punctuation markdown gives a
// meaning to. Line breaks become spaces so a value can not open a new block.
var markdownEscaper = func() *strings.Replacer {
	var pairs []string
	for _, c := range "\\`*_{}[]()<>#+-.!|~&\"'" {
		pairs = append(pairs, string(c), "\\"+string(c))
	}
	pairs = append(pairs, "\r\n", " ", "\n", " ", "\r", " ")
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdown renders v as literal text inside a markdown document.
func EscapeMarkdown(v any) string {
	return markdownEscaper.Replace(fmt.Sprint(v))
}
