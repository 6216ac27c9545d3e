package forms

import "unicode/utf8"

// MinPasswordLength is the shortest password the sign-up page accepts.
const MinPasswordLength = 6

// SignUp is the form record of the sign-up page.
type SignUp struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Bio             string
	Photo           *File
}

// Set updates a text field by name. Unknown names are ignored.
func (u *SignUp) Set(field, value string) {
	switch field {
	case FieldUsername:
		u.Username = value
	case FieldEmail:
		u.Email = value
	case FieldPassword:
		u.Password = value
	case FieldConfirmPassword:
		u.ConfirmPassword = value
	case FieldBio:
		u.Bio = value
	}
}

// SetFile stores f as the profile photo.
func (u *SignUp) SetFile(field string, f *File) {
	if field == FieldPhoto {
		u.Photo = f
	}
}

// ValidateSignUp runs every sign-up rule and returns one message per failing
// field. Email and bio are optional and not checked.
func ValidateSignUp(u *SignUp) (bool, Errors) {
	errs := Errors{}

	if u.Username == "" {
		errs.Add(FieldUsername, "Username is required")
	}

	if u.Password == "" {
		errs.Add(FieldPassword, "Password is required")
	} else if utf8.RuneCountInString(u.Password) < MinPasswordLength {
		errs.Add(FieldPassword, "Password should be at least 6 characters")
	}

	if u.Password != u.ConfirmPassword {
		errs.Add(FieldConfirmPassword, "Passwords do not match")
	}

	if u.Photo == nil {
		errs.Add(FieldPhoto, "Photo is required")
	}

	return len(errs) == 0, errs
}
