package handler

import (
	"net/http"
	"strconv"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/apiserver/feed"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

// AdminNotifications lists every notification merged with the event calendar
func (h *Handler) AdminNotifications(c *gin.Context) {
	h.serveFeed(c, nil)
}

// UserNotifications lists the caller's notifications merged with the event calendar
func (h *Handler) UserNotifications(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	uid := claims.UserID
	h.serveFeed(c, &uid)
}

func (h *Handler) serveFeed(c *gin.Context, userID *uint) {
	ctx := c.Request.Context()
	typ := cnst.NotificationType(c.Query("type"))

	var (
		notes  []*database.Notification
		events []*database.Event
		err    error
	)
	switch typ {
	case cnst.NotificationSchedule:
		events, err = h.db.ListEvents(ctx)
	case "":
		notes, err = h.db.ListNotifications(ctx, database.NotificationFilter{UserID: userID})
		if err == nil {
			events, err = h.db.ListEvents(ctx)
		}
	case cnst.NotificationSensor, cnst.NotificationRequest, cnst.NotificationNewUser:
		notes, err = h.db.ListNotifications(ctx, database.NotificationFilter{UserID: userID, Type: typ})
	default:
		h.errs.Respond(c, errorx.Validation("Unknown notification type %q", string(typ)))
		return
	}
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, feed.Merge(notes, events, h.loc))
}

func (h *Handler) UserMarkRead(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	uid := claims.UserID
	h.markRead(c, &uid)
}

func (h *Handler) AdminMarkRead(c *gin.Context) {
	h.markRead(c, nil)
}

// markRead marks the listed notifications read, or all of them when the
// list is empty. Event ids never match a row.
func (h *Handler) markRead(c *gin.Context, userID *uint) {
	var req dto.MarkReadRequest
	if !h.bindOptional(c, &req) {
		return
	}
	raw := make([]string, len(req.IDs))
	for i, id := range req.IDs {
		raw[i] = string(id)
	}
	ids := feed.NotificationIDs(raw)
	if len(raw) > 0 && len(ids) == 0 {
		c.JSON(http.StatusOK, dto.CountResponse{Count: 0})
		return
	}
	n, err := h.db.MarkNotificationsRead(c.Request.Context(), userID, ids)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: n})
}

func (h *Handler) UserDeleteNotification(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	uid := claims.UserID
	h.deleteNotification(c, &uid)
}

func (h *Handler) AdminDeleteNotification(c *gin.Context) {
	h.deleteNotification(c, nil)
}

func (h *Handler) deleteNotification(c *gin.Context, userID *uint) {
	raw := c.Param("id")
	if feed.IsEventID(raw) {
		h.errs.Respond(c, errorx.Validation("Scheduled events are removed from the calendar"))
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		h.errs.Respond(c, errorx.Validation("Invalid id"))
		return
	}
	rows, err := h.db.DeleteNotification(c.Request.Context(), uint(id), userID)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if rows == 0 {
		h.errs.Respond(c, errorx.NotFound("Notification"))
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Notification deleted"})
}

// UserDeleteAll removes every notification addressed to the caller
func (h *Handler) UserDeleteAll(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	n, err := h.db.DeleteAllNotifications(c.Request.Context(), claims.UserID)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: n})
}

func (h *Handler) AdminUnreadCount(c *gin.Context) {
	h.unreadCount(c, nil)
}

func (h *Handler) UserUnreadCount(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	uid := claims.UserID
	h.unreadCount(c, &uid)
}

func (h *Handler) unreadCount(c *gin.Context, userID *uint) {
	n, err := h.db.CountUnread(c.Request.Context(), userID)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: n})
}
