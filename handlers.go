package pubforms

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/eringen/pubforms/backend"
	"github.com/eringen/pubforms/drafts"
	"github.com/eringen/pubforms/forms"
	"github.com/eringen/pubforms/views"
)

const (
	msgServerUnreachable     = "Could not reach the server. Please try again."
	msgCategoriesUnavailable = "Could not load categories. Please reload the page."
	msgDraftExpired          = "This form has expired. Please reload the page."
	msgTooManyAttempts       = "Too many attempts. Try again later."
)

var msgFileTooLarge = "File size should not exceed " + strconv.Itoa(forms.MaxPhotoSize>>20) + "MB"

func handleHome(c echo.Context) error {
	if _, ok := CurrentAuth(c); ok {
		return c.Redirect(http.StatusSeeOther, "/blogs/create/")
	}
	return c.Redirect(http.StatusSeeOther, "/register/")
}

func (a *App) handleProfile(c echo.Context) error {
	auth, _ := CurrentAuth(c)
	return Render(c, a.Views.Profile(views.ProfilePage{
		Page:   a.page(c, "Profile"),
		UserID: auth.UserID,
	}))
}

// page builds the layout values for c. It consumes pending flash messages,
// so call it only for the response that shows them.
func (a *App) page(c echo.Context, title string) views.Page {
	p := views.Page{
		SiteName:  a.Config.Name,
		Title:     title,
		CSRFToken: CsrfToken(c),
		Flash:     popFlash(c),
	}
	if auth, ok := CurrentAuth(c); ok {
		p.Username = auth.Username
	}
	return p
}

// openDraft returns the draft id of page, or a new draft when it is gone.
func (a *App) openDraft(page, id string) (drafts.Draft, error) {
	draft, err := a.Drafts.Get(id, page)
	if errors.Is(err, drafts.ErrNotFound) {
		return a.Drafts.Create(page)
	}
	return draft, err
}

func (a *App) deleteDraft(id string) {
	if err := a.Drafts.Delete(id); err != nil {
		log.Errorf("delete draft %s: %s", id, err)
	}
}

// readUpload returns the file sent under field, or nil when none was sent.
func readUpload(c echo.Context, field string) (*forms.File, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return forms.ReadFile(fh)
}

// selectFile applies a file selection to rec and keeps it in the draft.
func (a *App) selectFile(page string, draft drafts.Draft, rec forms.Record, h *forms.FileHandler, field string, f *forms.File) (views.FileSelection, error) {
	sel := h.Select(rec, field, f)
	a.Metrics.CounterFileSelections.WithLabelValues(page, strconv.FormatBool(sel.Message == "")).Inc()
	if err := a.Drafts.SaveFile(draft.ID, field, f, sel.Preview); err != nil {
		return views.FileSelection{Field: field}, err
	}
	return views.FileSelection{
		Field:   field,
		Name:    f.Name,
		Message: sel.Message,
		Preview: sel.Preview,
	}, nil
}

// handleFileSelection serves the file-selection requests of both pages.
func (a *App) handleFileSelection(c echo.Context, page string, rec forms.Record, h *forms.FileHandler, field string) (views.FileSelection, error) {
	none := views.FileSelection{Field: field}

	draft, err := a.Drafts.Get(c.FormValue("draft_id"), page)
	if errors.Is(err, drafts.ErrNotFound) {
		none.Message = msgDraftExpired
		return none, nil
	}
	if err != nil {
		return none, err
	}

	f, err := readUpload(c, field)
	switch {
	case errors.Is(err, forms.ErrFileTooLarge):
		none.Message = msgFileTooLarge
		return none, nil
	case err != nil:
		return none, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case f == nil:
		return none, nil
	}
	return a.selectFile(page, draft, rec, h, field, f)
}

// attachFile puts the file sent with a submit into rec, or else the one kept
// in the draft from an earlier selection.
func (a *App) attachFile(c echo.Context, page string, draft drafts.Draft, rec forms.Record, h *forms.FileHandler, field string) (views.FileSelection, error) {
	f, err := readUpload(c, field)
	switch {
	case errors.Is(err, forms.ErrFileTooLarge):
		return views.FileSelection{Field: field, Message: msgFileTooLarge}, nil
	case err != nil:
		return views.FileSelection{Field: field}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case f != nil:
		return a.selectFile(page, draft, rec, h, field, f)
	}

	if draft.File == nil || draft.FileField != field {
		return views.FileSelection{Field: field}, nil
	}
	rec.SetFile(field, draft.File)
	sel := views.FileSelection{
		Field:   field,
		Name:    draft.File.Name,
		Preview: draft.Preview,
	}
	if h.Validator != nil {
		sel.Message = h.Validator.Validate(draft.File)
	}
	return sel, nil
}

// submitMessage turns a failed submit into the text shown on the form.
func submitMessage(page string, err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		log.Warnf("%s submit rejected: %s", page, apiErr)
		return apiErr.Message(fallback)
	}
	log.Errorf("%s submit: %s", page, err)
	return msgServerUnreachable
}

func (a *App) countSubmission(page string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			outcome = "rejected"
		}
	}
	a.Metrics.CounterSubmissions.WithLabelValues(page, outcome).Inc()
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c, "Not found")))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		log.Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.page(c, "Error")))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
