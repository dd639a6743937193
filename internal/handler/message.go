package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/session"
)

// MessageHandler serves direct messages between users.
type MessageHandler struct {
	Users    UserStore
	Messages MessageStore
	Audit    Auditor
	Log      *zap.Logger
}

// MessagesData is the page specific part of the messages page.
type MessagesData struct {
	Inbox []model.MessageView
	Sent  []model.MessageView
	To    string
}

func (h *MessageHandler) List(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	data := MessagesData{To: strings.TrimSpace(c.QueryParam("to"))}
	if data.Inbox, err = h.Messages.ListInbox(ctx, u.ID); err != nil {
		return err
	}
	if data.Sent, err = h.Messages.ListSent(ctx, u.ID); err != nil {
		return err
	}
	return renderPage(c, h.Log, http.StatusOK, "messages", "Messages", data)
}

// Send delivers a message to another active user by username.
func (h *MessageHandler) Send(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	to := strings.TrimSpace(c.FormValue("to"))
	content := strings.TrimSpace(c.FormValue("content"))
	switch {
	case to == "" || content == "":
		return redirectWithFlash(c, h.Log, session.FlashError, "Please fill in all required fields.", "/messages")
	case utf8.RuneCountInString(content) > model.MaxMessageLength:
		return redirectWithFlash(c, h.Log, session.FlashError, "Message is too long.", "/messages")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	receiver, err := h.Users.GetActiveByUsername(ctx, to)
	if errors.Is(err, repository.ErrUserNotFound) {
		return redirectWithFlash(c, h.Log, session.FlashError, "User not found.", "/messages")
	}
	if err != nil {
		return err
	}
	if receiver.ID == u.ID {
		return redirectWithFlash(c, h.Log, session.FlashError, "You cannot message yourself.", "/messages")
	}

	id, err := h.Messages.Create(ctx, u.ID, receiver.ID, content)
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, u.ID, "message.sent", fmt.Sprintf("message_id=%d receiver_id=%d", id, receiver.ID))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Message sent.", "/messages")
}

// MarkRead flags a received message as read and answers with a fragment.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	u, err := authUser(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c, "id")
	if !ok {
		return errorFragment(c, http.StatusNotFound, "Message not found.")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	err = h.Messages.MarkRead(ctx, id, u.ID)
	if errors.Is(err, repository.ErrMessageNotFound) {
		return errorFragment(c, http.StatusNotFound, "Message not found.")
	}
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, "")
}

// Delete hides a message the user sent or received.
func (h *MessageHandler) Delete(c echo.Context) error {
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

	err = h.Messages.SoftDelete(ctx, id, u.ID)
	if errors.Is(err, repository.ErrMessageNotFound) {
		return redirectWithFlash(c, h.Log, session.FlashError, "Message not found.", "/messages")
	}
	if err != nil {
		return err
	}
	h.Audit.Record(ctx, u.ID, "message.deleted", fmt.Sprintf("message_id=%d", id))
	return redirectWithFlash(c, h.Log, session.FlashSuccess, "Message deleted.", "/messages")
}
