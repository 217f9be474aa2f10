package report

import (
	"embed"
	"fmt"
	"io"
	"text/template"
	"time"

	"eventledger/internal/core"
)

//go:embed templates/*.md
var templates embed.FS

// RenderMarkdown writes the report as a markdown document.
func RenderMarkdown(w io.Writer, r Report) error {
	funcs := template.FuncMap{
		"money": func(a core.Amount) string { return FormatAmount(a, r.Currency) },
		"date":  func(t time.Time) string { return t.Format(time.DateOnly) },
		"enddate": func(t *time.Time) string {
			if t == nil {
				return "open"
			}
			return t.Format(time.DateOnly)
		},
	}
	tmpl, err := template.New("report.md").Funcs(funcs).ParseFS(templates, "templates/*.md")
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := tmpl.ExecuteTemplate(w, "report.md", r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
