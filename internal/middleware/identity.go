package middleware

// identity.go holds the context keys set by LoadSession and Locale and the
// accessors handlers use to read them.

import (
	"strconv"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-commons/internal/model"
)

const (
	ctxSession    = "session"
	ctxUser       = "user"
	ctxLang       = "lang"
	ctxTranslator = "translator"
)

// Session returns the request's session, or nil when LoadSession did not run.
func Session(c echo.Context) *sessions.Session {
	s, _ := c.Get(ctxSession).(*sessions.Session)
	return s
}

// CurrentUser returns the logged in, active user or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// CurrentUserID returns the logged in user's id.
func CurrentUserID(c echo.Context) (uint64, bool) {
	if u := CurrentUser(c); u != nil {
		return u.ID, true
	}
	return 0, false
}

// Lang returns the locale chosen for this request.
func Lang(c echo.Context) string {
	if l, ok := c.Get(ctxLang).(string); ok && l != "" {
		return l
	}
	return "en"
}

// T translates key into the request locale.  Without the Locale middleware
// it returns key unchanged.
func T(c echo.Context, key string) string {
	if t, ok := c.Get(ctxTranslator).(func(string) string); ok {
		return t(key)
	}
	return key
}

// SetUser stores the authenticated user on the context.  Login calls it so
// the rest of the request sees the new identity.
func SetUser(c echo.Context, u *model.User) { c.Set(ctxUser, u) }

// ClearUser drops the user from the context, e.g. after logout.
func ClearUser(c echo.Context) { c.Set(ctxUser, nil) }

// currentUserKey identifies the caller in rate limit keys.
func currentUserKey(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
