package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/i18n"
	"github.com/iliyamo/community-commons/internal/middleware"
	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/session"
	"github.com/iliyamo/community-commons/internal/view"
)

// dbTimeout bounds every database round trip made by a handler.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

var languages = func() []string {
	out := make([]string, 0, len(i18n.Supported))
	for _, t := range i18n.Supported {
		out = append(out, t.String())
	}
	return out
}()

// renderPage drains pending flashes into a full page and renders it.
func renderPage(c echo.Context, log *zap.Logger, status int, name, title string, data interface{}) error {
	sess := middleware.Session(c)
	var flashes []session.Flash
	if session.HasFlashes(sess) {
		flashes = session.Flashes(sess)
		saveSession(c, log)
	}
	return c.Render(status, name, &view.Page{
		Title:     title,
		Lang:      middleware.Lang(c),
		Languages: languages,
		User:      middleware.CurrentUser(c),
		Flashes:   flashes,
		T:         func(key string) string { return middleware.T(c, key) },
		Data:      data,
	})
}

// flash queues msg on the session without saving it.
func flash(c echo.Context, kind, msg string) {
	if sess := middleware.Session(c); sess != nil {
		session.AddFlash(sess, kind, msg)
	}
}

func saveSession(c echo.Context, log *zap.Logger) {
	sess := middleware.Session(c)
	if sess == nil {
		return
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		log.Warn("session save failed", zap.Error(err), zap.String("path", c.Request().URL.Path))
	}
}

// redirectWithFlash queues msg, saves the session and redirects.
func redirectWithFlash(c echo.Context, log *zap.Logger, kind, msg, to string) error {
	flash(c, kind, msg)
	saveSession(c, log)
	return c.Redirect(http.StatusFound, to)
}

func errorFragment(c echo.Context, status int, msg string) error {
	return c.HTML(status, view.ErrorFragment(middleware.T(c, msg)))
}

func successFragment(c echo.Context, msg string) error {
	return c.HTML(http.StatusOK, view.SuccessFragment(middleware.T(c, msg)))
}

func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// authUser returns the authenticated user.  Routes using it sit behind
// RequireLogin, so a nil user only happens when a route is mis-wired.
func authUser(c echo.Context) (*model.User, error) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return nil, echo.ErrUnauthorized
	}
	return u, nil
}
