package pubforms

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/eringen/pubforms/backend"
	"github.com/eringen/pubforms/views"
)

const (
	msgLoginFailed   = "Invalid username or password."
	msgLoginRequired = "Username and password are required."
	msgNoAccountID   = "Could not identify your account. Please try again."
)

func (a *App) handleLogin(c echo.Context) error {
	return a.renderLoginForm(c, views.LoginForm{})
}

func (a *App) handleLoginSubmit(c echo.Context) error {
	ip := c.RealIP()
	if !a.submitLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, msgTooManyAttempts)
	}

	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	form := views.LoginForm{Username: username}
	if username == "" || password == "" {
		form.Message = msgLoginRequired
		return a.renderLoginForm(c, form)
	}

	pair, err := a.Backend.ObtainToken(c.Request().Context(), username, password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			a.submitLimiter.Record(ip)
			form.Message = apiErr.Message(msgLoginFailed)
		} else {
			log.Errorf("obtain token: %s", err)
			form.Message = msgServerUnreachable
		}
		return a.renderLoginForm(c, form)
	}

	userID, err := userIDFromToken(pair.Access)
	if err != nil || userID == "" {
		log.Errorf("login %q: no user id in access token: %v", username, err)
		form.Message = msgNoAccountID
		return a.renderLoginForm(c, form)
	}
	if err := setAuthSession(c, AuthContext{
		UserID:       userID,
		Username:     username,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	}); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/blogs/create/")
}

func handleLogout(c echo.Context) error {
	if err := clearAuthSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login/")
}

func (a *App) renderLoginForm(c echo.Context, form views.LoginForm) error {
	form.Page = a.page(c, "Sign in")
	return Render(c, a.Views.Login(form))
}
