package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListSensors(c *gin.Context) {
	list, err := h.db.ListSensors(c.Request.Context())
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateSensor(c *gin.Context) {
	var req dto.SensorRequest
	if !h.bind(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.errs.Respond(c, errorx.ErrMissingField.WithMessage("name is required"))
		return
	}
	s := &database.Sensor{Name: name, Unit: strings.TrimSpace(req.Unit), Description: req.Description}
	if err := h.db.CreateSensor(c.Request.Context(), s); err != nil {
		if errors.Is(err, cnst.ErrDuplicate) {
			h.errs.Respond(c, errorx.Conflict("Sensor %q already exists", name))
			return
		}
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusCreated, s)
}

// DeleteSensor removes a catalog sensor and unlinks it everywhere
func (h *Handler) DeleteSensor(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteSensor(c.Request.Context(), id); err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Sensor deleted"})
}
