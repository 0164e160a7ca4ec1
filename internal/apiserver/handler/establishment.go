package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/amoylab/hydrowatch/internal/realtime"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var errEstablishmentTaken = errorx.Conflict("An establishment with this name or device id already exists")

// CreateEstablishment inserts an establishment and links the known sensors.
// Unknown sensor ids are dropped.
func (h *Handler) CreateEstablishment(c *gin.Context) {
	var req dto.EstablishmentRequest
	if !h.bind(c, &req) {
		return
	}
	est, ok := h.validateEstablishment(c, &req)
	if !ok {
		return
	}

	err := h.runWorkflow(c.Request.Context(), cnst.SpanEstablishmentNew, "establishment_create", func(ctx context.Context) error {
		taken, err := h.db.EstablishmentConflict(ctx, est.Name, est.DeviceID, 0)
		if err != nil {
			return err
		}
		if taken {
			return errEstablishmentTaken
		}
		if err := h.db.CreateEstablishment(ctx, est); err != nil {
			if errors.Is(err, cnst.ErrDuplicate) {
				return errEstablishmentTaken.Wrap(err)
			}
			return err
		}
		return h.linkSensors(ctx, est, req.Sensors)
	}, attribute.String(cnst.AttrDeviceID, est.DeviceID))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, est)
}

// ListEstablishments returns what the caller may see: everything for a
// Super Admin, assigned sites for an Admin, the bound site for a User.
func (h *Handler) ListEstablishments(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		list []*database.Establishment
		err  error
	)
	switch claims.Role {
	case cnst.RoleSuperAdmin:
		list, err = h.db.ListEstablishments(ctx)
	case cnst.RoleAdmin:
		list, err = h.db.ListAdminEstablishments(ctx, claims.UserID)
	default:
		list, err = h.userEstablishments(ctx, claims.UserID)
	}
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if list == nil {
		list = []*database.Establishment{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetEstablishment(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	est, err := h.db.GetEstablishment(ctx, id)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	allowed, err := h.auth.CanAccessDevice(ctx, claims, est.DeviceID)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if !allowed {
		h.errs.Respond(c, errorx.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, est)
}

// UpdateEstablishment renames an establishment and replaces its sensor set
func (h *Handler) UpdateEstablishment(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req dto.EstablishmentRequest
	if !h.bind(c, &req) {
		return
	}
	est, ok := h.validateEstablishment(c, &req)
	if !ok {
		return
	}
	est.ID = id

	err := h.runWorkflow(c.Request.Context(), cnst.SpanEstablishmentSet, "establishment_update", func(ctx context.Context) error {
		taken, err := h.db.EstablishmentConflict(ctx, est.Name, est.DeviceID, id)
		if err != nil {
			return err
		}
		if taken {
			return errEstablishmentTaken
		}
		if err := h.db.UpdateEstablishment(ctx, est); err != nil {
			if errors.Is(err, cnst.ErrDuplicate) {
				return errEstablishmentTaken.Wrap(err)
			}
			return err
		}
		return h.linkSensors(ctx, est, req.Sensors)
	}, attribute.Int64(cnst.AttrEstablishmentID, int64(id)))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	updated, err := h.db.GetEstablishment(c.Request.Context(), id)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteEstablishment removes the site and its sensor and admin links
func (h *Handler) DeleteEstablishment(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteEstablishment(c.Request.Context(), id); err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Establishment deleted"})
}

// validateEstablishment checks the request before any database work
func (h *Handler) validateEstablishment(c *gin.Context, req *dto.EstablishmentRequest) (*database.Establishment, bool) {
	name := strings.TrimSpace(req.Name)
	deviceID := strings.TrimSpace(req.DeviceID)
	if name == "" {
		h.errs.Respond(c, errorx.ErrMissingField.WithMessage("name is required"))
		return nil, false
	}
	if !realtime.ValidDeviceID(deviceID) {
		h.errs.Respond(c, errorx.Validation("device_id must be exactly five digits"))
		return nil, false
	}
	return &database.Establishment{Name: name, DeviceID: deviceID}, true
}

// linkSensors replaces the establishment's sensors with the known subset of
// ids and fills est.Sensors with them
func (h *Handler) linkSensors(ctx context.Context, est *database.Establishment, ids []uint) error {
	ids = uniqueIDs(ids)
	known, err := h.db.ExistingSensorIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(known) < len(ids) {
		h.logger.Warn("dropping unknown sensor ids",
			zap.String("device_id", est.DeviceID),
			zap.Uints("requested", ids),
			zap.Uints("linked", known))
	}
	if err := h.db.SetEstablishmentSensors(ctx, est.ID, known); err != nil {
		return err
	}
	fresh, err := h.db.GetEstablishment(ctx, est.ID)
	if err != nil {
		return err
	}
	*est = *fresh
	return nil
}

func (h *Handler) userEstablishments(ctx context.Context, userID uint) ([]*database.Establishment, error) {
	user, err := h.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	device := user.ApprovedDevice()
	if device == "" {
		return nil, nil
	}
	est, err := h.db.GetEstablishmentByDeviceID(ctx, device)
	if errors.Is(err, cnst.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*database.Establishment{est}, nil
}
