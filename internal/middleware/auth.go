package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/session"
	"github.com/iliyamo/community-commons/internal/view"
)

// RequireLogin guards full-page routes.  Anonymous visitors are redirected
// to the login page with msg flashed.
func RequireLogin(msg string, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) != nil {
				return next(c)
			}
			if sess := Session(c); sess != nil {
				session.AddFlash(sess, session.FlashError, msg)
				if err := sess.Save(c.Request(), c.Response()); err != nil {
					log.Warn("save flash failed", zap.Error(err))
				}
			}
			return c.Redirect(http.StatusFound, "/login")
		}
	}
}

// RequireLoginFragment guards fragment endpoints.  Anonymous callers get msg
// as an inline error fragment with status 200 so the page swaps it in.
func RequireLoginFragment(msg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) != nil {
				return next(c)
			}
			return c.HTML(http.StatusOK, view.ErrorFragment(T(c, msg)))
		}
	}
}
