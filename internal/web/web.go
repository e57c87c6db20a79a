// Package web holds the server-rendered pages. Templates are embedded so
// the binary deploys without an asset directory.
package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

func Render(w io.Writer, name string, data any) error {
	return templates.ExecuteTemplate(w, name, data)
}
