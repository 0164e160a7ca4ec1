package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/amoylab/hydrowatch/internal/apiserver/middleware"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/amoylab/hydrowatch/internal/realtime"
	"github.com/gin-gonic/gin"
)

const maxReadingBody = 64 << 10

// IngestReadings accepts readings from the sensor bridge and fans them out
// to connected dashboards
func (h *Handler) IngestReadings(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if !realtime.ValidDeviceID(deviceID) {
		h.errs.Respond(c, errorx.Validation("deviceId must be exactly five digits"))
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxReadingBody))
	if err != nil {
		h.errs.Respond(c, errorx.ErrInvalidInput.Wrap(err))
		return
	}
	readings, err := realtime.ParseReadings(deviceID, body, h.now())
	if err != nil {
		h.errs.Respond(c, errorx.Validation("%s", err.Error()).Wrap(err))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.GetEstablishmentByDeviceID(ctx, deviceID); err != nil {
		if errors.Is(err, cnst.ErrNotFound) {
			h.errs.Respond(c, errorx.NotFound("Device"))
			return
		}
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if err := h.realtime.Ingest(ctx, readings); err != nil {
		h.errs.Respond(c, errorx.ErrInternalServer.Wrap(err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(readings)})
}

// LatestReadings returns the last value seen per metric for a device
func (h *Handler) LatestReadings(c *gin.Context) {
	c.JSON(http.StatusOK, h.realtime.Hub().Latest(c.Param("deviceId")))
}

// DeviceFeed upgrades to a websocket streaming a device's readings. Browsers
// cannot set headers on websocket requests, so the token may come as ?token=.
func (h *Handler) DeviceFeed(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if !realtime.ValidDeviceID(deviceID) {
		h.errs.Respond(c, errorx.Validation("deviceId must be exactly five digits"))
		return
	}
	token := middleware.BearerToken(c)
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	claims, err := h.auth.Authenticate(token)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	allowed, err := h.auth.CanAccessDevice(c.Request.Context(), claims, deviceID)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if !allowed {
		h.errs.Respond(c, errorx.ErrForbidden)
		return
	}
	h.realtime.Hub().Serve(c.Writer, c.Request, deviceID)
}
