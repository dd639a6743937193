package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/session"
)

// EventHandler serves community events and RSVPs.
type EventHandler struct {
	Events EventStore
	Audit  Auditor
	Log    *zap.Logger
	Now    func() time.Time
}

type EventsData struct {
	Events []model.EventListing
}

type EventDetailData struct {
	Event       *model.EventListing
	Counts      model.RSVPCounts
	MyRSVP      string
	IsOrganizer bool
}

// EventForm is both the create form state and its bind target.
type EventForm struct {
	Title       string `form:"title" validate:"required,max=120"`
	Description string `form:"description" validate:"required"`
	Location    string `form:"location" validate:"required,max=200"`
	EventDate   string `form:"event_date" validate:"required"`
	ImageURL    string `form:"image_url" validate:"omitempty,url,max=500"`
}

func (h *EventHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// List shows active events that have not happened yet.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	events, err := h.Events.ListUpcoming(ctx, h.now())
	if err != nil {
		return err
	}
	return renderPage(c, h.Log, http.StatusOK, "events", "Events", EventsData{Events: events})
}

func (h *EventHandler) Show(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return echo.ErrNotFound
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	data := EventDetailData{Event: ev}
	if data.Counts, err = h.Events.CountRSVPs(ctx, id); err != nil {
		return err
	}
	if u, _ := authUser(c); u != nil {
		data.IsOrganizer = u.ID == ev.OrganizerID
		if data.MyRSVP, err = h.Events.GetRSVPStatus(ctx, id, u.ID); err != nil {
			return err
		}
	}
	return renderPage(c, h.Log, http.StatusOK, "event_detail", ev.Title, data)
}

func (h *EventHandler) NewForm(c echo.Context) error {
	return renderPage(c, h.Log, http.StatusOK, "event_new", "Create event", EventForm{})
}

// Create schedules a new event organised by the current user.
func (h *EventHandler) Create(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	var f EventForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Location = strings.TrimSpace(f.Location)
	f.ImageURL = strings.TrimSpace(f.ImageURL)

	rerender := func(msg string) error {
		flash(c, session.FlashError, msg)
		return renderPage(c, h.Log, http.StatusOK, "event_new", "Create event", f)
	}
	if err := c.Validate(&f); err != nil {
		return rerender("Please fill in all required fields.")
	}
	when, err := time.ParseInLocation(datetimeLocal, strings.TrimSpace(f.EventDate), time.UTC)
	if err != nil {
		return rerender("Please fill in all required fields.")
	}
	if !when.After(h.now()) {
		return rerender("Event date must be in the future.")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	ev := model.Event{
		Title: f.Title, Description: f.Description, Location: f.Location,
		EventDate: when, OrganizerID: u.ID,
	}
	ev.ImageURL.String, ev.ImageURL.Valid = f.ImageURL, f.ImageURL != ""
	id, err := h.Events.Create(ctx, ev)
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, u.ID, "event.created", fmt.Sprintf("event_id=%d", id))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Event created.", fmt.Sprintf("/events/%d", id))
}

// RSVP records the user's answer and returns a fragment.
func (h *EventHandler) RSVP(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c, "id")
	if !ok {
		return errorFragment(c, http.StatusNotFound, "Event not found.")
	}
	status := strings.TrimSpace(c.FormValue("status"))
	if !model.ValidRSVPStatus(status) {
		return errorFragment(c, http.StatusOK, "Please choose going, maybe or not going.")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return errorFragment(c, http.StatusNotFound, "Event not found.")
	}
	if err != nil {
		return err
	}
	if ev.Status != model.EventActive {
		return errorFragment(c, http.StatusConflict, "Event cancelled.")
	}
	if err := h.Events.UpsertRSVP(ctx, id, u.ID, status); err != nil {
		return err
	}
	h.Audit.Record(ctx, u.ID, "event.rsvp", fmt.Sprintf("event_id=%d status=%s", id, status))
	return successFragment(c, "RSVP saved.")
}

// Cancel lets the organizer call off an event.
func (h *EventHandler) Cancel(c echo.Context) error {
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

	err = h.Events.Cancel(ctx, id, u.ID)
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return echo.ErrNotFound
	case errors.Is(err, repository.ErrForbidden):
		return echo.ErrForbidden
	case errors.Is(err, repository.ErrInvalidTransition):
		return redirectWithFlash(c, h.Log, session.FlashInfo, "Event cancelled.", fmt.Sprintf("/events/%d", id))
	case err != nil:
		return err
	}
	h.Audit.Record(ctx, u.ID, "event.cancelled", fmt.Sprintf("event_id=%d", id))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Event cancelled.", fmt.Sprintf("/events/%d", id))
}
