package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/middleware"
	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/session"
)

// ProfileHandler serves the profile page, profile edits and ratings.
type ProfileHandler struct {
	Users     UserStore
	Resources ResourceStore
	Requests  RequestStore
	Audit     Auditor
	Log       *zap.Logger
}

// ProfileData is the page specific part of the profile page.
type ProfileData struct {
	Resources []model.ResourceListing
	Incoming  []model.RequestDetail
	Outgoing  []model.RequestDetail
}

// Show renders the user's details, resources and requests in both
// directions.
func (h *ProfileHandler) Show(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	var data ProfileData
	if data.Resources, err = h.Resources.ListActiveByOwner(ctx, u.ID); err != nil {
		return err
	}
	if data.Incoming, err = h.Requests.ListIncoming(ctx, u.ID); err != nil {
		return err
	}
	if data.Outgoing, err = h.Requests.ListOutgoing(ctx, u.ID); err != nil {
		return err
	}
	return renderPage(c, h.Log, http.StatusOK, "profile", "Profile", data)
}

type profileForm struct {
	FirstName string `form:"first_name" validate:"required,max=80"`
	LastName  string `form:"last_name" validate:"required,max=80"`
	Address   string `form:"address" validate:"max=200"`
	Phone     string `form:"phone" validate:"max=20"`
	Location  string `form:"location" validate:"max=200"`
}

// Update stores the editable profile fields.
func (h *ProfileHandler) Update(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	var f profileForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	if err := c.Validate(&f); err != nil {
		return redirectWithFlash(c, h.Log, session.FlashError, "Please fill in all required fields.", "/profile")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, u.ID, model.ProfileUpdate{
		FirstName: f.FirstName, LastName: f.LastName, Address: f.Address, Phone: f.Phone, Location: f.Location,
	}); err != nil {
		return err
	}
	h.Audit.Record(ctx, u.ID, "user.profile_updated", "")
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Profile updated.", "/profile")
}

// Rate folds a 1..5 rating into the target user's running mean.
func (h *ProfileHandler) Rate(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return errorFragment(c, http.StatusOK, "Invalid rating.")
	}
	rating, err := strconv.Atoi(strings.TrimSpace(c.FormValue("rating")))
	if err != nil || !model.ValidRating(rating) {
		return errorFragment(c, http.StatusOK, "Invalid rating.")
	}
	if target == u.ID {
		return errorFragment(c, http.StatusOK, "You cannot rate yourself.")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	err = h.Users.ApplyRating(ctx, target, rating)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errorFragment(c, http.StatusOK, "Invalid rating.")
	}
	if err != nil {
		return err
	}
	middleware.IncRatings()
	h.Audit.Record(ctx, u.ID, "user.rated", fmt.Sprintf("target_id=%d rating=%d", target, rating))
	return successFragment(c, "Rating submitted!")
}
