package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/middleware"
	"github.com/iliyamo/community-commons/internal/view"
)

// ErrorData is rendered by the error page.
type ErrorData struct {
	Status  int
	Message string
}

// NewHTTPErrorHandler renders errors as a localized page, or as a fragment
// for in-page (htmx) requests.  Unexpected errors are logged; their details
// never reach the client.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		msg := "Something went wrong. Please try again."
		switch code {
		case http.StatusNotFound:
			msg = "Page not found."
		case http.StatusUnauthorized:
			msg = "Please log in to access this page."
		case http.StatusForbidden:
			msg = "You are not allowed to do that."
		case http.StatusTooManyRequests:
			msg = "Too many attempts. Please wait a moment and try again."
		}
		if code >= 500 {
			fields := []zap.Field{zap.Error(err), zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID))}
			if id, ok := middleware.CurrentUserID(c); ok {
				fields = append(fields, zap.Uint64("user_id", id))
			}
			log.Error("request failed", fields...)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if c.Request().Header.Get("HX-Request") == "true" {
			_ = c.HTML(code, view.ErrorFragment(middleware.T(c, msg)))
			return
		}
		if rerr := renderPage(c, log, code, "error", msg, ErrorData{Status: code, Message: msg}); rerr != nil {
			log.Error("render error page", zap.Error(rerr))
			_ = c.String(code, http.StatusText(code))
		}
	}
}
