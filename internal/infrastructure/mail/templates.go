package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// TemplateRenderer renders the HTML body of each transactional email.
// Every template is parsed once, cloned from the shared layout.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses the embedded email templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	layout, err := template.New("layout").Funcs(funcMap()).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("mail: failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &TemplateRenderer{templates: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		tmpl, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tmpl.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("mail: failed to parse %s: %w", file, err)
		}
		r.templates[strings.TrimSuffix(path.Base(file), ".html")] = tmpl
	}
	return r, nil
}

// Render executes the named template with data
func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("mail: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("mail: failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Has reports whether a template with that name exists
func (r *TemplateRenderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"money": formatEuros,
		"euros": func(cents int64) string { return formatEuros(decimal.New(cents, -2)) },
		"title": titleCase,
	}
}

// formatEuros formats an amount as "€1,234.50"
func formatEuros(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(',')
		}
		b.WriteRune(c)
	}
	return sign + "€" + b.String() + "." + decPart
}

func titleCase(v any) string {
	return cases.Title(language.English).String(fmt.Sprint(v))
}
