package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/repository"
)

// RequestHandler answers and withdraws resource requests.  Every endpoint
// returns a fragment.
type RequestHandler struct {
	Requests RequestStore
	Audit    Auditor
	Log      *zap.Logger
}

// datetimeLocal is the value format of an HTML datetime-local input.
const datetimeLocal = "2006-01-02T15:04"

func (h *RequestHandler) Accept(c echo.Context) error  { return h.respond(c, true) }
func (h *RequestHandler) Decline(c echo.Context) error { return h.respond(c, false) }

func (h *RequestHandler) respond(c echo.Context, accept bool) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c, "id")
	if !ok {
		return errorFragment(c, http.StatusNotFound, "Request not found.")
	}
	var scheduled *time.Time
	if accept {
		if raw := strings.TrimSpace(c.FormValue("scheduled_date")); raw != "" {
			t, err := time.ParseInLocation(datetimeLocal, raw, time.UTC)
			if err != nil {
				return errorFragment(c, http.StatusOK, "Please fill in all required fields.")
			}
			scheduled = &t
		}
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Requests.Respond(ctx, id, u.ID, accept, scheduled); err != nil {
		return h.transitionError(c, err)
	}
	action, msg := "request.declined", "Request declined."
	if accept {
		action, msg = "request.accepted", "Request accepted."
	}
	h.Audit.Record(ctx, u.ID, action, fmt.Sprintf("request_id=%d", id))
	return successFragment(c, msg)
}

// Cancel withdraws the caller's own pending request.
func (h *RequestHandler) Cancel(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c, "id")
	if !ok {
		return errorFragment(c, http.StatusNotFound, "Request not found.")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Requests.Cancel(ctx, id, u.ID); err != nil {
		return h.transitionError(c, err)
	}
	h.Audit.Record(ctx, u.ID, "request.cancelled", fmt.Sprintf("request_id=%d", id))
	return successFragment(c, "Request cancelled.")
}

func (h *RequestHandler) transitionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRequestNotFound):
		return errorFragment(c, http.StatusNotFound, "Request not found.")
	case errors.Is(err, repository.ErrForbidden):
		return errorFragment(c, http.StatusForbidden, "You are not allowed to do that.")
	case errors.Is(err, repository.ErrInvalidTransition):
		return errorFragment(c, http.StatusConflict, "This request has already been answered.")
	}
	return err
}
