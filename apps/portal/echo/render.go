package echoportal

import (
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/services/authclient"
)

const layoutTemplate = "_layout.gohtml"

// page is the data every portal template is executed with.
type page struct {
	AppName   string
	Title     string
	ShowUsers bool
	User      authclient.User

	// login
	Username      string
	Error         string
	CallbackParam string
	Callback      string

	// dashboard
	CanManageUsers bool

	// users
	Search string
	Users  []authclient.User

	// error
	Code    int
	Message string
}

// templateRenderer is an echo.Renderer executing dir/<name>.gohtml inside the layout.
type templateRenderer struct {
	templates map[string]*template.Template
}

func newTemplateRenderer(fsys fs.FS, dir string) (*templateRenderer, error) {
	fps, err := fs.Glob(fsys, path.Join(dir, "*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, "listing portal templates")
	}

	r := &templateRenderer{templates: make(map[string]*template.Template, len(fps))}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.ParseFS(fsys, path.Join(dir, layoutTemplate), fp)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fp)
		}
		r.templates[strings.TrimSuffix(fname, path.Ext(fname))] = tmpl.Option("missingkey=error")
	}
	return r, nil
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("portal template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
