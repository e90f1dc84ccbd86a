package generator

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateStore renders the reusable prompt templates shipped with the
// binary. Shared fragments are defined as templates of their own and invoked
// from the payload templates, so every prompt carries the same baseline
// requirements.
type TemplateStore struct {
	templates *template.Template
}

// NewTemplateStore parses the embedded prompt templates.
func NewTemplateStore() (*TemplateStore, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	return &TemplateStore{templates: templates}, nil
}

// Render executes the named template with the given data.
func (s *TemplateStore) Render(name string, data any) (string, error) {
	var out strings.Builder
	if err := s.templates.ExecuteTemplate(&out, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template %s: %w", name, err)
	}

	return out.String(), nil
}
