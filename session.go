package pubforms

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// AuthContext is the signed-in user as kept in the session: the token pair
// issued by the backend and the user it belongs to.
type AuthContext struct {
	UserID       string
	Username     string
	AccessToken  string
	RefreshToken string
}

const (
	sessKeyUserID   = "user_id"
	sessKeyUsername = "username"
	sessKeyAccess   = "access"
	sessKeyRefresh  = "refresh"
)

// CurrentAuth returns the auth context of the session, if any. A session
// without a user id is not signed in.
func CurrentAuth(c echo.Context) (AuthContext, bool) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return AuthContext{}, false
	}
	access, _ := sess.Values[sessKeyAccess].(string)
	if access == "" {
		return AuthContext{}, false
	}
	auth := AuthContext{AccessToken: access}
	auth.UserID, _ = sess.Values[sessKeyUserID].(string)
	if auth.UserID == "" {
		return AuthContext{}, false
	}
	auth.Username, _ = sess.Values[sessKeyUsername].(string)
	auth.RefreshToken, _ = sess.Values[sessKeyRefresh].(string)
	return auth, true
}

func setAuthSession(c echo.Context, auth AuthContext) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessKeyUserID] = auth.UserID
	sess.Values[sessKeyUsername] = auth.Username
	sess.Values[sessKeyAccess] = auth.AccessToken
	sess.Values[sessKeyRefresh] = auth.RefreshToken
	return sess.Save(c.Request(), c.Response())
}

func clearAuthSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// addFlash queues a status message for the next page rendered for this
// session.
func addFlash(c echo.Context, msg string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.AddFlash(msg)
	return sess.Save(c.Request(), c.Response())
}

// popFlash returns and clears the queued status messages, joined.
func popFlash(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		log.Errorf("save session: %s", err)
	}
	msg := ""
	for _, f := range flashes {
		if s, ok := f.(string); ok {
			if msg != "" {
				msg += " "
			}
			msg += s
		}
	}
	return msg
}

// userIDFromToken reads the user_id claim of an access token without
// verifying its signature.
func userIDFromToken(access string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return "", fmt.Errorf("parse access token: %w", err)
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case string:
		return v, nil
	case nil:
		return "", fmt.Errorf("access token has no user_id claim")
	default:
		return "", fmt.Errorf("unexpected user_id claim type %T", v)
	}
}
