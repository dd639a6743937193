package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/middleware"
	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/queue"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/session"
	"github.com/iliyamo/community-commons/internal/utils"
)

// AuthHandler bundles dependencies for registration, login, logout and
// identity verification.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Audit  Auditor
	Events EventPublisher
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, users UserStore, audit Auditor, events EventPublisher, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Audit: audit, Events: events, Log: log}
}

// AuthForm carries the submitted values back into a re-rendered form.
// Passwords are never echoed.
type AuthForm struct {
	Username  string `form:"username" validate:"required,max=80"`
	Email     string `form:"email" validate:"required,email,max=120"`
	FirstName string `form:"first_name" validate:"required,max=80"`
	LastName  string `form:"last_name" validate:"required,max=80"`
	Password  string `form:"password" validate:"required,min=8,max=72"`
}

func (f *AuthForm) trim() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
}

func (f AuthForm) echo() AuthForm {
	f.Password = ""
	return f
}

func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return renderPage(c, h.Log, http.StatusOK, "register", "Register", AuthForm{})
}

// Register creates an unverified account and sends the user to the login
// page.  Validation and uniqueness failures re-render the form.
func (h *AuthHandler) Register(c echo.Context) error {
	var f AuthForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.trim()
	if err := c.Validate(&f); err != nil {
		flash(c, session.FlashError, registerValidationMessage(err))
		return renderPage(c, h.Log, http.StatusOK, "register", "Register", f.echo())
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Users.Create(ctx, model.NewUser{
		Username: f.Username, Email: f.Email, FirstName: f.FirstName, LastName: f.LastName, Password: f.Password,
	}, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrUsernameExists):
		flash(c, session.FlashError, "Username already exists.")
		return renderPage(c, h.Log, http.StatusOK, "register", "Register", f.echo())
	case errors.Is(err, repository.ErrEmailExists):
		flash(c, session.FlashError, "Email already registered.")
		return renderPage(c, h.Log, http.StatusOK, "register", "Register", f.echo())
	case err != nil:
		return err
	}

	h.Audit.Record(ctx, id, "user.registered", "username="+f.Username)
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Registration successful! Please log in.", "/login")
}

func registerValidationMessage(err error) string {
	switch field, tag := failedField(err); {
	case field == "Email" && tag == "email":
		return "Please enter a valid email address."
	case field == "Password" && tag == "min":
		return "Password must be at least 8 characters."
	}
	return "Please fill in all required fields."
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return renderPage(c, h.Log, http.StatusOK, "login", "Log in", AuthForm{})
}

// Login establishes a session for an active user with a matching password.
// The failure message is the same for an unknown user and a wrong password.
func (h *AuthHandler) Login(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	fail := func() error {
		flash(c, session.FlashError, "Invalid username or password.")
		return renderPage(c, h.Log, http.StatusOK, "login", "Log in", AuthForm{Username: username})
	}
	if username == "" || password == "" {
		return fail()
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetActiveByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fail()
	}
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		h.Audit.Record(ctx, u.ID, "user.login_failed", "")
		return fail()
	}

	sess := middleware.Session(c)
	if sess == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	// A fresh id on login prevents session fixation.
	sess.ID = ""
	session.SetUser(sess, u.ID, u.Username)
	middleware.SetUser(c, u)

	if err := h.Users.TouchLastLogin(ctx, u.ID); err != nil {
		h.Log.Warn("touch last_login failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	h.Audit.Record(ctx, u.ID, "user.login", "")
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Login successful!", "/")
}

// Logout removes the login and language keys from the session.
func (h *AuthHandler) Logout(c echo.Context) error {
	if id, ok := middleware.CurrentUserID(c); ok {
		h.Audit.Record(c.Request().Context(), id, "user.logout", "")
	}
	if sess := middleware.Session(c); sess != nil {
		session.Clear(sess)
	}
	middleware.ClearUser(c)
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Logged out successfully.", "/")
}

// VerifyForm shows the verification form.  A code in the query string is
// redeemed directly so the emailed link works in one click.
func (h *AuthHandler) VerifyForm(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return redirectWithFlash(c, h.Log, session.FlashInfo, "Your identity is already verified.", "/profile")
	}
	if code := strings.TrimSpace(c.QueryParam("code")); code != "" {
		return h.redeem(c, u, code)
	}
	return renderPage(c, h.Log, http.StatusOK, "verify", "Verify identity", nil)
}

// Verify redeems a submitted verification code.
func (h *AuthHandler) Verify(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return redirectWithFlash(c, h.Log, session.FlashInfo, "Your identity is already verified.", "/profile")
	}
	return h.redeem(c, u, strings.TrimSpace(c.FormValue("verification_code")))
}

func (h *AuthHandler) redeem(c echo.Context, u *model.User, code string) error {
	invalid := func() error {
		flash(c, session.FlashError, "Invalid verification code.")
		return renderPage(c, h.Log, http.StatusOK, "verify", "Verify identity", nil)
	}
	jti, err := utils.ParseVerificationToken(h.Cfg.SecretKey, code, u.ID)
	if err != nil {
		return invalid()
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	err = h.Users.RedeemVerification(ctx, u.ID, jti)
	if errors.Is(err, repository.ErrTokenNotRedeemable) {
		return invalid()
	}
	if err != nil {
		return err
	}
	u.IsVerified = true
	h.Audit.Record(ctx, u.ID, "user.verified", "")
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Identity verified successfully!", "/profile")
}

// SendVerification issues a new token, replacing any earlier one, and hands
// it to the mailer queue.
func (h *AuthHandler) SendVerification(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return redirectWithFlash(c, h.Log, session.FlashInfo, "Your identity is already verified.", "/profile")
	}

	tok, err := utils.NewVerificationToken(h.Cfg.SecretKey, u.ID, h.Cfg.VerifyTokenTTL)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.SetVerificationToken(ctx, u.ID, tok.ID); err != nil {
		return err
	}
	if err := h.Events.VerificationRequested(ctx, queue.VerificationRequestedEvent{
		UserID: u.ID, Username: u.Username, Email: u.Email, Token: tok.Token, ExpiresAt: tok.Exp,
	}); err != nil {
		h.Log.Warn("publish verification request failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	if h.Cfg.IsDev() {
		h.Log.Debug("verification token issued", zap.Uint64("user_id", u.ID),
			zap.String("link", "/verify_identity?code="+tok.Token))
	}
	h.Audit.Record(ctx, u.ID, "user.verification_requested", "expires="+strconv.FormatInt(tok.Exp.Unix(), 10))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "A verification code has been sent.", "/verify_identity")
}
