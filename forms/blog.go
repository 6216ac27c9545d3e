package forms

import "strings"

// Blog is the form record of the blog creation page.
type Blog struct {
	Title    string
	Content  string
	Category string
	Image    *File
	Author   string
}

// NewBlog returns an empty blog record authored by the given user id.
func NewBlog(author string) *Blog {
	return &Blog{Author: author}
}

// Set updates a text field by name. Unknown names are ignored.
func (b *Blog) Set(field, value string) {
	switch field {
	case FieldTitle:
		b.Title = value
	case FieldContent:
		b.Content = value
	case FieldCategory:
		b.Category = value
	}
}

// SetFile stores f as the blog image.
func (b *Blog) SetFile(field string, f *File) {
	if field == FieldImage {
		b.Image = f
	}
}

// ValidateBlog checks the blog record. The rules run in page order and stop at
// the first failure, so the returned Errors holds at most one message.
func ValidateBlog(b *Blog) (bool, Errors) {
	errs := Errors{}
	switch {
	case strings.TrimSpace(b.Title) == "":
		errs.Add(FieldTitle, "Title is required")
	case strings.TrimSpace(b.Content) == "":
		errs.Add(FieldContent, "Content is required")
	case b.Category == "":
		errs.Add(FieldCategory, "Please select a category")
	case b.Image == nil:
		errs.Add(FieldImage, "Please upload an image")
	}
	return len(errs) == 0, errs
}

// BlogMessage returns the single shared message of a blog validation pass.
func BlogMessage(errs Errors) string {
	for _, f := range []string{FieldTitle, FieldContent, FieldCategory, FieldImage} {
		if msg := errs.Get(f); msg != "" {
			return msg
		}
	}
	return ""
}
