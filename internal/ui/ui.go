// Package ui holds the server-rendered form fields and page chrome of the
// admin console. Each component is a value: Render writes its markup and the
// interaction methods (Change, Toggle, Cancel, Add) invoke the callback the
// owning page supplied, unchanged.
package ui

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/terra-clan/wellness-hub/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("ui").Funcs(template.FuncMap{
	"t": i18n.T,
}).ParseFS(templateFS, "templates/*.html"))

// Component renders itself as HTML.
type Component interface {
	Render(w io.Writer) error
}

// HTML renders c for embedding in a page template.
func HTML(c Component) (template.HTML, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func render(w io.Writer, name string, data any) error {
	return templates.ExecuteTemplate(w, name, data)
}

func locale(l string) string {
	if l == "" {
		return i18n.Default
	}
	return l
}
