package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func HasTemplate(name string) bool {
	return templates.Lookup(name+".html") != nil
}

// Render executes the named template against data.
func Render(name string, data map[string]any) (string, error) {
	tmpl := templates.Lookup(name + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
