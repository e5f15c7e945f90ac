// Package views renders the pages shown while signing in.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates/*.gotmpl
var files embed.FS

const layout = "templates/layout.gotmpl"

// Views holds a parsed template for each page.
type Views struct {
	pages map[string]*template.Template
}

// New parses every page, each wrapped in the layout.
func New() (*Views, error) {
	names, err := fs.Glob(files, "templates/*.gotmpl")
	if err != nil {
		return nil, err
	}

	pages := map[string]*template.Template{}
	for _, name := range names {
		if name == layout {
			continue
		}

		tmpl, err := template.ParseFS(files, layout, name)
		if err != nil {
			return nil, err
		}

		pages[strings.TrimSuffix(path.Base(name), ".gotmpl")] = tmpl
	}

	return &Views{pages: pages}, nil
}

// Render writes the page called name.
func (v *Views) Render(w io.Writer, name string, data map[string]any) error {
	tmpl, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("views: no page called %q", name)
	}

	return tmpl.ExecuteTemplate(w, "layout", data)
}
