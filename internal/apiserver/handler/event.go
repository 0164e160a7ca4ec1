package handler

import (
	"net/http"
	"strings"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/apiserver/feed"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.db.ListEvents(c.Request.Context())
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	e, ok := h.bindEvent(c)
	if !ok {
		return
	}
	e.CreatedBy = claims.UserID
	if err := h.db.CreateEvent(c.Request.Context(), e); err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	e, ok := h.bindEvent(c)
	if !ok {
		return
	}
	e.ID = id
	ctx := c.Request.Context()
	if err := h.db.UpdateEvent(ctx, e); err != nil {
		h.errs.Respond(c, err)
		return
	}
	updated, err := h.db.GetEvent(ctx, id)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteEvent(c.Request.Context(), id); err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Event deleted"})
}

// bindEvent decodes an event body and checks the date and time formats
func (h *Handler) bindEvent(c *gin.Context) (*database.Event, bool) {
	var req dto.EventRequest
	if !h.bind(c, &req) {
		return nil, false
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		h.errs.Respond(c, errorx.ErrMissingField.WithMessage("title is required"))
		return nil, false
	}
	date, clock := strings.TrimSpace(req.Date), strings.TrimSpace(req.Time)
	if _, err := feed.EventTime(date, clock, h.loc); err != nil {
		h.errs.Respond(c, errorx.Validation("date must be YYYY-MM-DD and time HH:MM").Wrap(err))
		return nil, false
	}
	return &database.Event{
		Title:       title,
		Date:        date,
		Time:        clock,
		Description: strings.TrimSpace(req.Description),
	}, true
}
