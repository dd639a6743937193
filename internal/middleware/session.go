package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/session"
)

// UserLoader looks up the account behind a session.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// LoadSession attaches the session to the context and resolves its user from
// the database on every request, so the verified flag and the active flag
// are never stale.  A session pointing at a missing or deactivated account
// is cleared.
func LoadSession(store sessions.Store, users UserLoader, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			sess, err := store.Get(r, session.CookieName)
			if err != nil {
				log.Warn("session load failed", zap.Error(err), zap.String("path", r.URL.Path))
			}
			if sess == nil {
				return next(c)
			}
			c.Set(ctxSession, sess)

			id, ok := session.UserID(sess)
			if !ok {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			u, err := users.GetByID(ctx, id)
			cancel()
			switch {
			case err == nil && u.IsActive:
				c.Set(ctxUser, u)
			case err == nil || errors.Is(err, repository.ErrUserNotFound):
				session.Clear(sess)
				if err := sess.Save(r, c.Response()); err != nil {
					log.Warn("session clear failed", zap.Error(err))
				}
			default:
				return err
			}
			return next(c)
		}
	}
}
