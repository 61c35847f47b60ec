package email

import (
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
	"upper": strings.ToUpper,
}

func loadTemplates() (*template.Template, error) {
	return template.New("email").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}
