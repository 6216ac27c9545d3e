// Package views renders the form pages. Pages are html/template files
// embedded in the binary and exposed as templ components.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var (
	pages    = map[string]*template.Template{}
	partials *template.Template
)

func init() {
	for _, name := range []string{
		"blog_create.html",
		"signup.html",
		"login.html",
		"profile.html",
		"not_found.html",
		"server_error.html",
	} {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFiles, "templates/layout.html", "templates/partials.html", "templates/"+name))
	}
	partials = template.Must(template.New("partials.html").Funcs(funcs).
		ParseFS(templateFiles, "templates/partials.html"))
}

// Static returns the stylesheet and script served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, "layout.html", data)
	})
}

func partial(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return partials.ExecuteTemplate(w, name, data)
	})
}

// BlogCreate is the blog creation page.
func BlogCreate(f BlogForm) templ.Component {
	return page("blog_create.html", f)
}

// ImageSelection is the blog image input's message and preview.
func ImageSelection(s FileSelection) templ.Component {
	return partial("file-selection", s)
}

// ContentPreview renders Markdown content as it will be published.
func ContentPreview(content string) templ.Component {
	return partial("content-preview", content)
}

// SignUp is the sign-up page with inline field errors.
func SignUp(f SignUpForm) templ.Component {
	return page("signup.html", f)
}

// PhotoSelection is the sign-up photo input's message.
func PhotoSelection(s FileSelection) templ.Component {
	return partial("file-selection", s)
}

// Login is the sign-in page.
func Login(f LoginForm) templ.Component {
	return page("login.html", f)
}

// Profile is where a created blog lands.
func Profile(p ProfilePage) templ.Component {
	return page("profile.html", p)
}

// NotFound is the 404 page.
func NotFound(p Page) templ.Component {
	return page("not_found.html", p)
}

// ServerError is shown for 5xx errors.
func ServerError(p Page) templ.Component {
	return page("server_error.html", p)
}
