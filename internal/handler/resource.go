package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/middleware"
	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/queue"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/session"
)

// ResourceHandler serves listing, matching, posting and requesting of
// resources.
type ResourceHandler struct {
	Resources  ResourceStore
	Categories CategoryStore
	Requests   RequestStore
	Audit      Auditor
	Events     EventPublisher
	Log        *zap.Logger
}

// ListingData feeds the listing page used by /, /browse and /match_resources.
type ListingData struct {
	Resources          []model.ResourceListing
	Categories         []model.Category
	SelectedCategory   uint64
	ShowCategoryFilter bool
}

// Index lists every active resource.
func (h *ResourceHandler) Index(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	list, err := h.Resources.ListActive(ctx)
	if err != nil {
		return err
	}
	return renderPage(c, h.Log, http.StatusOK, "listing", "Home", ListingData{Resources: list})
}

// Browse lists active resources, optionally narrowed by ?category=<id>.
// An unknown or malformed category shows everything.
func (h *ResourceHandler) Browse(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	cats, err := h.Categories.ListActive(ctx)
	if err != nil {
		return err
	}
	data := ListingData{Categories: cats, ShowCategoryFilter: true}

	if catID, err := strconv.ParseUint(c.QueryParam("category"), 10, 64); err == nil && catID > 0 {
		data.SelectedCategory = catID
		data.Resources, err = h.Resources.ListActiveByCategory(ctx, catID)
		if err != nil {
			return err
		}
	} else {
		data.Resources, err = h.Resources.ListActive(ctx)
		if err != nil {
			return err
		}
	}
	return renderPage(c, h.Log, http.StatusOK, "listing", "Browse", data)
}

// MatchByLocation keeps the resources whose location equals location
// exactly (case-sensitive).  An empty location keeps everything.
func MatchByLocation(list []model.ResourceListing, location string) []model.ResourceListing {
	if location == "" {
		return list
	}
	out := make([]model.ResourceListing, 0, len(list))
	for _, r := range list {
		if r.Location == location {
			out = append(out, r)
		}
	}
	return out
}

// Match lists active resources at the user's location.
func (h *ResourceHandler) Match(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	list, err := h.Resources.ListActive(ctx)
	if err != nil {
		return err
	}
	return renderPage(c, h.Log, http.StatusOK, "listing", "Resources near you",
		ListingData{Resources: MatchByLocation(list, u.Location.String)})
}

// PostResourceForm is both the form state and the bind target.
type PostResourceForm struct {
	Title       string           `form:"title" validate:"required,max=120"`
	Description string           `form:"description" validate:"required"`
	CategoryID  uint64           `form:"category_id" validate:"required"`
	Location    string           `form:"location" validate:"required,max=200"`
	ImageURL    string           `form:"image_url" validate:"omitempty,url,max=500"`
	Categories  []model.Category `form:"-" validate:"-"`
}

func (f *PostResourceForm) trim() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Location = strings.TrimSpace(f.Location)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
}

func (h *ResourceHandler) PostForm(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	cats, err := h.Categories.ListActive(ctx)
	if err != nil {
		return err
	}
	return renderPage(c, h.Log, http.StatusOK, "post_resource", "Post a resource", PostResourceForm{Categories: cats})
}

// Post creates an available resource owned by the current user.
func (h *ResourceHandler) Post(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	var f PostResourceForm
	rerender := func(msg string) error {
		cats, err := h.Categories.ListActive(ctx)
		if err != nil {
			return err
		}
		f.Categories = cats
		flash(c, session.FlashError, msg)
		return renderPage(c, h.Log, http.StatusOK, "post_resource", "Post a resource", f)
	}

	// category_id is the only numeric field, so a bind failure means a
	// malformed category.
	if err := c.Bind(&f); err != nil {
		f = PostResourceForm{
			Title: c.FormValue("title"), Description: c.FormValue("description"),
			Location: c.FormValue("location"), ImageURL: c.FormValue("image_url"),
		}
		f.trim()
		return rerender("Please choose a valid category.")
	}
	f.trim()
	if err := c.Validate(&f); err != nil {
		if field, _ := failedField(err); field == "CategoryID" {
			return rerender("Please choose a valid category.")
		}
		return rerender("Please fill in all required fields.")
	}
	if _, err := h.Categories.GetActiveByID(ctx, f.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return rerender("Please choose a valid category.")
		}
		return err
	}

	id, err := h.Resources.Create(ctx, model.NewResource{
		Title: f.Title, Description: f.Description, CategoryID: f.CategoryID,
		Location: f.Location, ImageURL: f.ImageURL, OwnerID: u.ID,
	})
	if err != nil {
		return err
	}
	middleware.IncResourcesPosted()
	h.Audit.Record(ctx, u.ID, "resource.posted", fmt.Sprintf("resource_id=%d", id))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Resource posted successfully!", "/")
}

// RequestResource records a pending request and answers with a fragment.
func (h *ResourceHandler) RequestResource(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	resID, ok := paramID(c, "resource_id")
	if !ok {
		return errorFragment(c, http.StatusNotFound, "Resource not found.")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Resources.GetActiveByID(ctx, resID)
	if errors.Is(err, repository.ErrResourceNotFound) {
		return errorFragment(c, http.StatusNotFound, "Resource not found.")
	}
	if err != nil {
		return err
	}
	if res.OwnerID == u.ID {
		return errorFragment(c, http.StatusOK, "You cannot request your own resource.")
	}
	if !res.IsAvailable {
		return errorFragment(c, http.StatusOK, "This resource is not available.")
	}

	reqID, err := h.Requests.Create(ctx, res.ID, u.ID, "Resource request from "+u.Username)
	if err != nil {
		return err
	}
	middleware.IncRequestsCreated()
	h.Audit.Record(ctx, u.ID, "resource.requested", fmt.Sprintf("resource_id=%d request_id=%d", res.ID, reqID))
	if err := h.Events.ResourceRequested(ctx, queue.ResourceRequestedEvent{
		RequestID: reqID, ResourceID: res.ID, ResourceTitle: res.Title, OwnerID: res.OwnerID,
		RequesterID: u.ID, RequesterUsername: u.Username, RequestedAt: time.Now().UTC(),
	}); err != nil {
		h.Log.Warn("publish resource request failed", zap.Uint64("request_id", reqID), zap.Error(err))
	}
	return successFragment(c, "Request submitted successfully!")
}

// SetAvailability lets an owner mark a resource available or unavailable.
func (h *ResourceHandler) SetAvailability(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c, "id")
	if !ok {
		return echo.ErrNotFound
	}
	available, err := strconv.ParseBool(c.FormValue("available"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid availability")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	err = h.Resources.SetAvailability(ctx, id, u.ID, available)
	if errors.Is(err, repository.ErrResourceNotFound) {
		return redirectWithFlash(c, h.Log, session.FlashError, "Resource not found.", "/profile")
	}
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, u.ID, "resource.availability", fmt.Sprintf("resource_id=%d available=%t", id, available))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Availability updated.", "/profile")
}

// Delete hides an owned resource from every listing.
func (h *ResourceHandler) Delete(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c, "id")
	if !ok {
		return echo.ErrNotFound
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	err = h.Resources.SoftDelete(ctx, id, u.ID)
	if errors.Is(err, repository.ErrResourceNotFound) {
		return redirectWithFlash(c, h.Log, session.FlashError, "Resource not found.", "/profile")
	}
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, u.ID, "resource.deleted", fmt.Sprintf("resource_id=%d", id))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Resource deleted.", "/profile")
}
