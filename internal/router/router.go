package router // package router defines how HTTP routes are registered for the application

import (
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/handler"
	"github.com/iliyamo/community-commons/internal/i18n"
	"github.com/iliyamo/community-commons/internal/middleware"
)

// Deps carries everything the route table needs.  Redis may be nil, in
// which case rate limiting and page caching pass requests through.
type Deps struct {
	Log       *zap.Logger
	Store     sessions.Store
	Users     middleware.UserLoader
	Bundle    *i18n.Bundle
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig

	Auth      *handler.AuthHandler
	Resources *handler.ResourceHandler
	Profile   *handler.ProfileHandler
	Requests  *handler.RequestHandler
	Messages  *handler.MessageHandler
	Events    *handler.EventHandler
	Pages     *handler.PageHandler
}

// RegisterMiddleware installs the global chain.  The session must be loaded
// before Locale reads the stored language.
func RegisterMiddleware(e *echo.Echo, d Deps) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Metrics())
	e.Use(middleware.LoadSession(d.Store, d.Users, d.Log))
	e.Use(middleware.Locale(d.Bundle, d.Log))
}

// RegisterRoutes registers operational endpoints that sit outside the
// session middleware's concerns.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterApp registers every page and fragment endpoint.
func RegisterApp(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
	cache := middleware.NewPageCache(d.Cache, d.Redis, d.Log)
	page := func(msg string) echo.MiddlewareFunc { return middleware.RequireLogin(msg, d.Log) }
	frag := middleware.RequireLoginFragment
	loginRequired := page("Please log in to access this page.")

	// Public pages.
	e.GET("/", d.Resources.Index)
	e.GET("/browse", d.Resources.Browse)
	e.GET("/about", d.Pages.About, cache)
	e.GET("/mission_vision", d.Pages.MissionVision, cache)
	e.GET("/contact", d.Pages.Contact, cache)
	e.POST("/set_language", d.Pages.SetLanguage)

	// Accounts.
	e.GET("/register", d.Auth.RegisterForm)
	e.POST("/register", d.Auth.Register, limit)
	e.GET("/login", d.Auth.LoginForm)
	e.POST("/login", d.Auth.Login, limit)
	e.GET("/logout", d.Auth.Logout)
	e.POST("/logout", d.Auth.Logout)
	verifyRequired := page("Please log in to verify your identity.")
	e.GET("/verify_identity", d.Auth.VerifyForm, verifyRequired)
	e.POST("/verify_identity", d.Auth.Verify, verifyRequired)
	e.POST("/verify_identity/send", d.Auth.SendVerification, verifyRequired)

	// Profile and ratings.
	profileRequired := page("Please log in to view your profile.")
	e.GET("/profile", d.Profile.Show, profileRequired)
	e.POST("/profile", d.Profile.Update, profileRequired)
	e.POST("/rate_user/:user_id", d.Profile.Rate, frag("Please log in to rate a user."))

	// Resources.
	postRequired := page("Please log in to post a resource.")
	e.GET("/post_resource", d.Resources.PostForm, postRequired)
	e.POST("/post_resource", d.Resources.Post, postRequired)
	e.GET("/match_resources", d.Resources.Match, page("Please log in to match resources."))
	e.POST("/request_resource/:resource_id", d.Resources.RequestResource, frag("Please log in to request a resource."))
	e.POST("/resources/:id/availability", d.Resources.SetAvailability, loginRequired)
	e.POST("/resources/:id/delete", d.Resources.Delete, loginRequired)

	// Requests.
	rq := e.Group("/requests", frag("Please log in to access this page."))
	rq.POST("/:id/accept", d.Requests.Accept)
	rq.POST("/:id/decline", d.Requests.Decline)
	rq.POST("/:id/cancel", d.Requests.Cancel)

	// Messages.
	e.GET("/messages", d.Messages.List, loginRequired)
	e.POST("/messages", d.Messages.Send, loginRequired)
	e.POST("/messages/:id/read", d.Messages.MarkRead, frag("Please log in to access this page."))
	e.POST("/messages/:id/delete", d.Messages.Delete, loginRequired)

	// Events.
	e.GET("/events", d.Events.List)
	e.GET("/events/new", d.Events.NewForm, loginRequired)
	e.POST("/events/new", d.Events.Create, loginRequired)
	e.GET("/events/:id", d.Events.Show)
	e.POST("/events/:id/rsvp", d.Events.RSVP, frag("Please log in to access this page."))
	e.POST("/events/:id/cancel", d.Events.Cancel, loginRequired)
}
