package handler

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded pages. Names are the file base names.
func Templates() *template.Template {
	funcs := template.FuncMap{"join": strings.Join}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
