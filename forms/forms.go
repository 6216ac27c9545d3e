// Package forms holds the form records behind the blog creation and sign-up
// pages, the validators that gate their submission, and the file handling
// used by both pages.
package forms

import "sort"

// Field names used in the rendered forms, the drafts store and the backend
// multipart payloads.
const (
	FieldTitle    = "title"
	FieldContent  = "content"
	FieldCategory = "category"
	FieldImage    = "image"
	FieldAuthor   = "author"

	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldBio             = "bio"
	FieldPhoto           = "photo"
)

// Record is a form whose fields can be set by name, the way a form input
// event reports its target name and value.
type Record interface {
	Set(field, value string)
	SetFile(field string, f *File)
}

// Errors maps a field name to a human-readable message. A fresh value is
// built on every validation pass.
type Errors map[string]string

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; ok {
		return
	}
	e[field] = msg
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Has reports whether field has a message.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields returns the names of the fields with messages in sorted order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
