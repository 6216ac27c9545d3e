package views

import (
	"html/template"
	"strings"
)

var funcs = template.FuncMap{
	"imageURL": imageURL,
	"markdown": markdownHTML,
	"fieldError": func(f SignUpForm, field string) string {
		return f.Errors.Get(field)
	},
}

// imageURL marks a data URL as safe for an img src. html/template rejects
// data URLs otherwise. Anything but an image data URL yields "".
func imageURL(s string) template.URL {
	if !strings.HasPrefix(s, "data:image/") {
		return ""
	}
	return template.URL(s)
}

func markdownHTML(source string) template.HTML {
	out, err := MarkdownHTML(source)
	if err != nil {
		return ""
	}
	return template.HTML(out)
}
