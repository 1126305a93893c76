// Package web содержит HTML-шаблоны тренажёра, встроенные в бинарник.
package web

import (
	"embed"
	"html/template"

	"decision-server/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// FuncMap - функции, доступные в шаблонах.
// display очищает свободный текст (роль, пояснения, текст модели) и помечает результат как готовый HTML,
// поэтому текст экранируется ровно один раз.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"display": func(s string) template.HTML {
			return template.HTML(validation.SanitizeForDisplay(s))
		},
	}
}

// Templates разбирает все шаблоны страниц.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
}
