// Package templates embeds the HTML pages and static assets.
package templates

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed *.html
var pages embed.FS

//go:embed static
var static embed.FS

// Load parses every page with funcs available to all of them.
func Load(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(pages, "*.html")
}

// Static is the asset tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
