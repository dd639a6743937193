package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PageHandler serves the static pages and the language switch.
type PageHandler struct {
	Log *zap.Logger
}

func (h *PageHandler) About(c echo.Context) error {
	return renderPage(c, h.Log, http.StatusOK, "about", "About", nil)
}

func (h *PageHandler) MissionVision(c echo.Context) error {
	return renderPage(c, h.Log, http.StatusOK, "mission_vision", "Mission & Vision", nil)
}

func (h *PageHandler) Contact(c echo.Context) error {
	return renderPage(c, h.Log, http.StatusOK, "contact", "Contact", nil)
}

// SetLanguage sends the visitor back where they came from.  The Locale
// middleware has already stored the submitted language in the session.
func (h *PageHandler) SetLanguage(c echo.Context) error {
	return c.Redirect(http.StatusFound, localReferer(c.Request()))
}

// localReferer returns the path of a same-host Referer, or "/".
func localReferer(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if ref.Path[0] != '/' || (len(ref.Path) > 1 && ref.Path[1] == '/') {
		return "/"
	}
	out := ref.Path
	if ref.RawQuery != "" {
		out += "?" + ref.RawQuery
	}
	return out
}
