package pubforms

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/eringen/pubforms/backend"
	"github.com/eringen/pubforms/drafts"
	"github.com/eringen/pubforms/forms"
	"github.com/eringen/pubforms/views"
)

const (
	msgRegistered     = "Successfully registered!"
	msgRegisterFailed = "Registration failed. Please try again."
)

var signUpFields = []string{
	forms.FieldUsername,
	forms.FieldEmail,
	forms.FieldPassword,
	forms.FieldConfirmPassword,
	forms.FieldBio,
}

func (a *App) handleSignUp(c echo.Context) error {
	draft, err := a.Drafts.Create(drafts.PageSignUp)
	if err != nil {
		return fmt.Errorf("create sign-up draft: %w", err)
	}
	return a.renderSignUpForm(c, views.SignUpForm{
		DraftID: draft.ID,
		Photo:   views.FileSelection{Field: forms.FieldPhoto},
	})
}

func (a *App) handleSignUpPhoto(c echo.Context) error {
	sel, err := a.handleFileSelection(c, drafts.PageSignUp, &forms.SignUp{}, a.photoFiles, forms.FieldPhoto)
	if err != nil {
		return err
	}
	return Render(c, a.Views.PhotoSelection(sel))
}

func (a *App) handleSignUpSubmit(c echo.Context) error {
	if !a.submitLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, msgTooManyAttempts)
	}

	u := &forms.SignUp{}
	for _, field := range signUpFields {
		u.Set(field, c.FormValue(field))
	}

	draft, err := a.openDraft(drafts.PageSignUp, c.FormValue("draft_id"))
	if err != nil {
		return fmt.Errorf("open sign-up draft: %w", err)
	}
	photo, err := a.attachFile(c, drafts.PageSignUp, draft, u, a.photoFiles, forms.FieldPhoto)
	if err != nil {
		return err
	}

	form := views.SignUpForm{
		DraftID:  draft.ID,
		Username: u.Username,
		Email:    u.Email,
		Bio:      u.Bio,
		Photo:    photo,
	}

	if ok, errs := forms.ValidateSignUp(u); !ok {
		a.Metrics.CounterValidationFailure.WithLabelValues(drafts.PageSignUp).Inc()
		form.Errors = errs
		return a.renderSignUpForm(c, form)
	}

	err = a.Backend.Register(c.Request().Context(), u)
	a.countSubmission(drafts.PageSignUp, err)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			log.Warnf("%s submit rejected: %s", drafts.PageSignUp, apiErr)
			form.Message, form.Errors = registerErrors(apiErr)
		} else {
			form.Message = submitMessage(drafts.PageSignUp, err, msgRegisterFailed)
		}
		return a.renderSignUpForm(c, form)
	}

	log.Infof("user %q registered", u.Username)
	a.deleteDraft(draft.ID)
	if err := addFlash(c, msgRegistered); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login/")
}

// registerErrors splits a rejected registration into the form message and
// inline messages for the fields the form has. The backend detail wins the
// message area; field errors for unknown fields are appended to it.
func registerErrors(apiErr *backend.APIError) (string, forms.Errors) {
	errs := forms.Errors{}
	var other []string
	for _, field := range sortedKeys(apiErr.Fields) {
		if isSignUpField(field) {
			errs.Add(field, apiErr.Fields[field])
		} else {
			other = append(other, apiErr.Fields[field])
		}
	}

	msg := apiErr.Detail
	if len(other) > 0 {
		msg = strings.TrimSpace(msg + " " + strings.Join(other, " "))
	}
	if msg == "" && len(errs) == 0 {
		msg = msgRegisterFailed
	}
	return msg, errs
}

func isSignUpField(field string) bool {
	if field == forms.FieldPhoto {
		return true
	}
	for _, f := range signUpFields {
		if f == field {
			return true
		}
	}
	return false
}

func (a *App) renderSignUpForm(c echo.Context, form views.SignUpForm) error {
	form.Page = a.page(c, "Sign up")
	return Render(c, a.Views.SignUp(form))
}
