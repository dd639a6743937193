package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/i18n"
	"github.com/iliyamo/community-commons/internal/middleware"
	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/session"
	"github.com/iliyamo/community-commons/internal/view"
)

const testSecret = "test-secret-with-enough-entropy-123"

// harness is a full echo instance wired with fakes and a cookie backed
// session store.  It keeps cookies between requests like a browser.
type harness struct {
	t          *testing.T
	e          *echo.Echo
	users      *fakeUsers
	categories *fakeCategories
	resources  *fakeResources
	requests   *fakeRequests
	messages   *fakeMessages
	events     *fakeEvents
	audit      *fakeAudit
	pub        *fakePublisher
	now        time.Time
	cookies    map[string]*http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		users:      newFakeUsers(),
		categories: &fakeCategories{list: []model.Category{{ID: 1, Name: "Tools", IsActive: true}}},
		resources:  &fakeResources{},
		requests:   &fakeRequests{},
		messages:   &fakeMessages{},
		events:     newFakeEvents(),
		audit:      &fakeAudit{},
		pub:        &fakePublisher{},
		now:        time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC),
		cookies:    map[string]*http.Cookie{},
	}

	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	bundle, err := i18n.Load()
	require.NoError(t, err)

	log := zap.NewNop()
	cfg := config.Config{Env: "test", SecretKey: testSecret, BcryptCost: 4, VerifyTokenTTL: 30 * time.Minute}
	store := session.NewStore(nil, testSecret, sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true})

	e := echo.New()
	e.Renderer = renderer
	e.Validator = NewFormValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Use(middleware.LoadSession(store, h.users, log))
	e.Use(middleware.Locale(bundle, log))

	auth := NewAuthHandler(cfg, h.users, h.audit, h.pub, log)
	res := &ResourceHandler{Resources: h.resources, Categories: h.categories, Requests: h.requests, Audit: h.audit, Events: h.pub, Log: log}
	prof := &ProfileHandler{Users: h.users, Resources: h.resources, Requests: h.requests, Audit: h.audit, Log: log}
	req := &RequestHandler{Requests: h.requests, Audit: h.audit, Log: log}
	msg := &MessageHandler{Users: h.users, Messages: h.messages, Audit: h.audit, Log: log}
	ev := &EventHandler{Events: h.events, Audit: h.audit, Log: log, Now: func() time.Time { return h.now }}
	pages := &PageHandler{Log: log}

	page := middleware.RequireLogin("Please log in to access this page.", log)
	frag := middleware.RequireLoginFragment

	e.GET("/", res.Index)
	e.GET("/browse", res.Browse)
	e.GET("/about", pages.About)
	e.POST("/set_language", pages.SetLanguage)
	e.GET("/register", auth.RegisterForm)
	e.POST("/register", auth.Register)
	e.GET("/login", auth.LoginForm)
	e.POST("/login", auth.Login)
	e.GET("/logout", auth.Logout)
	verifyRequired := middleware.RequireLogin("Please log in to verify your identity.", log)
	e.GET("/verify_identity", auth.VerifyForm, verifyRequired)
	e.POST("/verify_identity", auth.Verify, verifyRequired)
	e.POST("/verify_identity/send", auth.SendVerification, verifyRequired)
	profileRequired := middleware.RequireLogin("Please log in to view your profile.", log)
	e.GET("/profile", prof.Show, profileRequired)
	e.POST("/profile", prof.Update, profileRequired)
	e.POST("/rate_user/:user_id", prof.Rate, frag("Please log in to rate a user."))
	e.GET("/post_resource", res.PostForm, middleware.RequireLogin("Please log in to post a resource.", log))
	e.POST("/post_resource", res.Post, middleware.RequireLogin("Please log in to post a resource.", log))
	e.GET("/match_resources", res.Match, middleware.RequireLogin("Please log in to match resources.", log))
	e.POST("/request_resource/:resource_id", res.RequestResource, frag("Please log in to request a resource."))
	e.POST("/resources/:id/delete", res.Delete, page)
	e.POST("/requests/:id/accept", req.Accept, frag("Please log in to access this page."))
	e.POST("/requests/:id/decline", req.Decline, frag("Please log in to access this page."))
	e.POST("/requests/:id/cancel", req.Cancel, frag("Please log in to access this page."))
	e.GET("/messages", msg.List, page)
	e.POST("/messages", msg.Send, page)
	e.POST("/messages/:id/delete", msg.Delete, page)
	e.GET("/events", ev.List)
	e.GET("/events/new", ev.NewForm, page)
	e.POST("/events/new", ev.Create, page)
	e.GET("/events/:id", ev.Show)
	e.POST("/events/:id/rsvp", ev.RSVP, frag("Please log in to access this page."))
	e.POST("/events/:id/cancel", ev.Cancel, page)

	h.e = e
	return h
}

// do sends a request carrying the stored cookies and records the cookies
// the response sets.
func (h *harness) do(method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, c := range h.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c
	}
	return rec
}

func (h *harness) get(target string, headers ...string) *httptest.ResponseRecorder {
	return h.do(http.MethodGet, target, nil, headers...)
}

func (h *harness) post(target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return h.do(http.MethodPost, target, form, headers...)
}

// login signs in through the real login form.
func (h *harness) login(username, password string) {
	h.t.Helper()
	rec := h.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(h.t, http.StatusFound, rec.Code, rec.Body.String())
	require.Equal(h.t, "/", rec.Header().Get(echo.HeaderLocation))
}

// loggedIn reports whether the stored cookies carry a live login.
func (h *harness) loggedIn() bool {
	h.t.Helper()
	return h.get("/profile").Code == http.StatusOK
}
