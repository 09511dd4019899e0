// Package web holds the server-rendered pages of the student form app.
package web

import (
	"embed"
	"html/template"
	"io/fs"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var descriptionPolicy = bluemonday.UGCPolicy()

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"add1": func(i int) int { return i + 1 },
		// Section descriptions come from the upstream schema and may carry
		// markup; only a safe subset survives.
		"richText": func(s string) template.HTML {
			return template.HTML(descriptionPolicy.Sanitize(s))
		},
	}).ParseFS(templateFS, "templates/*.html")
}

// Static returns the stylesheet directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
