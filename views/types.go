package views

import "github.com/eringen/pubforms/forms"

// Page carries the values every page template needs into the layout.
type Page struct {
	SiteName  string
	Title     string
	CSRFToken string
	// Username is the signed-in user, empty for anonymous visitors.
	Username string
	// Flash is a one-shot status message carried over from a redirect.
	Flash string
}

// FileSelection is the state of a file input after the last selection.
type FileSelection struct {
	Field   string
	Name    string
	Message string
	// Preview is a data URL, set only when the page previews images.
	Preview string
}

// BlogForm is the blog creation page.
type BlogForm struct {
	Page
	DraftID    string
	Title      string
	Content    string
	Category   string
	Categories []forms.Category
	// CategoriesError is shown in place of the select options when the
	// category list could not be fetched.
	CategoriesError string
	Image           FileSelection
	// Message is the single shared message area of the form.
	Message string
}

// SignUpForm is the sign-up page. Password inputs are never re-filled.
type SignUpForm struct {
	Page
	DraftID  string
	Username string
	Email    string
	Bio      string
	Photo    FileSelection
	Errors   forms.Errors
	// Message is the backend's error detail after a failed submit.
	Message string
}

// LoginForm is the sign-in page.
type LoginForm struct {
	Page
	Username string
	Message  string
}

// ProfilePage is the landing page after a blog was created.
type ProfilePage struct {
	Page
	UserID string
}
