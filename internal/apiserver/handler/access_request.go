package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/amoylab/hydrowatch/internal/realtime"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// CreateAccessRequest binds the caller to a device and opens a pending
// request for an admin to approve. The user row is updated first so
// concurrent requests from the same user serialize on it.
func (h *Handler) CreateAccessRequest(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var req dto.AccessRequest
	if !h.bind(c, &req) {
		return
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if !realtime.ValidDeviceID(deviceID) {
		h.errs.Respond(c, errorx.Validation("deviceId must be exactly five digits"))
		return
	}

	var n *database.Notification
	err := h.runWorkflow(c.Request.Context(), cnst.SpanAccessRequest, "access_request", func(ctx context.Context) error {
		rows, err := h.db.SetUserDeviceID(ctx, claims.UserID, deviceID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errorx.NotFound("User")
		}
		pending, err := h.db.HasPendingRequest(ctx, claims.UserID, deviceID)
		if err != nil {
			return err
		}
		if pending {
			return cnst.ErrAlreadyPending
		}
		uid := claims.UserID
		n = &database.Notification{
			Type:     cnst.NotificationRequest,
			Title:    "Access request",
			Message:  fmt.Sprintf("%s requested access to device %s", claims.Username, deviceID),
			UserID:   &uid,
			DeviceID: deviceID,
			Priority: cnst.PriorityMedium,
			Status:   cnst.StatusPending,
		}
		return h.db.CreateNotification(ctx, n)
	}, attribute.Int64(cnst.AttrUserID, int64(claims.UserID)), attribute.String(cnst.AttrDeviceID, deviceID))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// ApproveAccessRequest verifies the requesting user for the requested device
// and closes the request. A request that is no longer pending, or that was
// filed by another user, answers 404.
func (h *Handler) ApproveAccessRequest(c *gin.Context) {
	id, ok := h.idParam(c, "notificationId")
	if !ok {
		return
	}
	var req dto.ApproveAccessRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.runWorkflow(c.Request.Context(), cnst.SpanAccessApprove, "access_approve", func(ctx context.Context) error {
		pending, err := h.db.GetPendingRequest(ctx, id)
		if errors.Is(err, cnst.ErrNotFound) {
			return errorx.NotFound("Pending access request")
		}
		if err != nil {
			return err
		}
		if pending.UserID == nil || *pending.UserID != req.UserID {
			return errorx.NotFound("Pending access request")
		}
		rows, err := h.db.SetUserVerified(ctx, req.UserID, pending.DeviceID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errorx.NotFound("User")
		}
		rows, err = h.db.ApproveRequest(ctx, id)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errorx.NotFound("Pending access request")
		}
		return nil
	}, attribute.Int64(cnst.AttrUserID, int64(req.UserID)))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Access request approved"})
}

// ListAccessRequests returns pending requests, newest first
func (h *Handler) ListAccessRequests(c *gin.Context) {
	list, err := h.db.ListNotifications(c.Request.Context(), database.NotificationFilter{
		Type:   cnst.NotificationRequest,
		Status: cnst.StatusPending,
	})
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, list)
}
