package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/i18n"
	"github.com/iliyamo/community-commons/internal/session"
)

// Locale resolves the request language: a supported "language" form field on
// a POST, then the session, then Accept-Language, then English.  An explicit
// choice is remembered in the session.
func Locale(b *i18n.Bundle, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			sess := Session(c)

			var form string
			if r.Method == http.MethodPost {
				form = c.FormValue("language")
			}
			stored := session.Language(sess)
			lang := b.Select(form, stored, r.Header.Get("Accept-Language"))

			if sess != nil && lang == form && form != stored {
				session.SetLanguage(sess, lang)
				if err := sess.Save(r, c.Response()); err != nil {
					log.Warn("save language failed", zap.Error(err))
				}
			}

			c.Set(ctxLang, lang)
			c.Set(ctxTranslator, b.Translator(lang))
			c.Response().Header().Set("Content-Language", lang)
			return next(c)
		}
	}
}
