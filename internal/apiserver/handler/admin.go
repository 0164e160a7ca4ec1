package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// CreateAdmin creates an Admin or Super Admin together with its establishment
// assignments in one transaction, then mails the verification code.
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req dto.CreateAdminRequest
	if !h.bind(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := cnst.Role(req.Role)
	if role != cnst.RoleAdmin && role != cnst.RoleSuperAdmin {
		h.errs.Respond(c, errorx.Validation("role must be Admin or Super Admin"))
		return
	}
	if req.Username == "" {
		h.errs.Respond(c, errorx.ErrMissingField.WithMessage("username is required"))
		return
	}
	estIDs := uniqueIDs(req.EstablishmentIDs)

	hash, err := h.hashPassword(req.Password)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	code, err := h.otp()
	if err != nil {
		h.errs.Respond(c, errorx.ErrInternalServer.Wrap(err))
		return
	}
	expiry := h.now().Add(otpTTL)

	user := &database.User{
		Username:         req.Username,
		Email:            req.Email,
		Password:         hash,
		Role:             role,
		IsVerified:       true,
		EmailVerified:    false,
		VerificationCode: code,
		OTPExpiry:        &expiry,
	}
	var names []string
	err = h.runWorkflow(c.Request.Context(), cnst.SpanAdminCreate, "admin_create", func(ctx context.Context) error {
		exists, err := h.db.UserExists(ctx, user.Email, user.Username)
		if err != nil {
			return err
		}
		if exists {
			return errorx.Conflict("A user with this email or username already exists")
		}
		if err := h.requireEstablishments(ctx, estIDs); err != nil {
			return err
		}
		if err := h.db.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := h.db.AssignEstablishments(ctx, user.ID, estIDs); err != nil {
			return err
		}
		list, err := h.db.ListEstablishmentsByIDs(ctx, estIDs)
		if err != nil {
			return err
		}
		for _, e := range list {
			names = append(names, e.Name)
		}
		return nil
	}, attribute.String("user.email", user.Email))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	msg := h.composer.AdminWelcome(h.language(c), user.Email, user.Username, string(user.Role), code, otpMinutes, names)
	sent := h.outbox.Deliver(c.Request.Context(), msg)
	c.JSON(http.StatusCreated, dto.CreateAdminResponse{
		Message:          "Admin created",
		UserID:           user.ID,
		EstablishmentIDs: estIDs,
		EmailSent:        sent,
	})
}

// ListAdmins returns every Admin and Super Admin with their establishments
func (h *Handler) ListAdmins(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := h.db.ListUsers(ctx, cnst.RoleAdmin, cnst.RoleSuperAdmin)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	out := make([]dto.AdminInfo, 0, len(users))
	for _, u := range users {
		ests, err := h.db.ListAdminEstablishments(ctx, u.ID)
		if err != nil {
			h.errs.Respond(c, errorx.Database(err))
			return
		}
		out = append(out, dto.AdminInfo{User: u, Establishments: ests})
	}
	c.JSON(http.StatusOK, out)
}

// SetAdminEstablishments replaces an admin's establishment set
func (h *Handler) SetAdminEstablishments(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req dto.AssignEstablishmentsRequest
	if !h.bind(c, &req) {
		return
	}
	want := uniqueIDs(req.EstablishmentIDs)

	err := h.runWorkflow(c.Request.Context(), cnst.SpanAdminAssign, "admin_assign", func(ctx context.Context) error {
		user, err := h.db.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if user.Role != cnst.RoleAdmin && user.Role != cnst.RoleSuperAdmin {
			return errorx.Validation("User %d is not an admin", id)
		}
		if err := h.requireEstablishments(ctx, want); err != nil {
			return err
		}
		have, err := h.db.GetAdminEstablishmentIDs(ctx, id)
		if err != nil {
			return err
		}
		add, remove := diffIDs(have, want)
		if err := h.db.UnassignEstablishments(ctx, id, remove); err != nil {
			return err
		}
		return h.db.AssignEstablishments(ctx, id, add)
	}, attribute.Int64(cnst.AttrUserID, int64(id)))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	ests, err := h.db.ListAdminEstablishments(c.Request.Context(), id)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, ests)
}

// ListUsers returns accounts, optionally filtered by ?role=
func (h *Handler) ListUsers(c *gin.Context) {
	var roles []cnst.Role
	if r := c.Query("role"); r != "" {
		role := cnst.Role(r)
		if !role.Valid() {
			h.errs.Respond(c, errorx.Validation("Invalid role %q", r))
			return
		}
		roles = append(roles, role)
	}
	users, err := h.db.ListUsers(c.Request.Context(), roles...)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser removes an account. The last Super Admin cannot be removed.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	err := h.runWorkflow(c.Request.Context(), cnst.SpanUserDelete, "user_delete", func(ctx context.Context) error {
		user, err := h.db.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if user.Role == cnst.RoleSuperAdmin {
			count, err := h.db.CountUsersByRole(ctx, cnst.RoleSuperAdmin)
			if err != nil {
				return err
			}
			if count <= 1 {
				return cnst.ErrLastSuperAdmin
			}
		}
		return h.db.DeleteUser(ctx, id)
	}, attribute.Int64(cnst.AttrUserID, int64(id)))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "User deleted"})
}

// SessionHistory pages through login and logout records, newest first
func (h *Handler) SessionHistory(c *gin.Context) {
	page := queryInt(c, "page", 1)
	size := queryInt(c, "pageSize", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}
	items, total, err := h.db.ListSessionHistory(c.Request.Context(), page, size)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, dto.SessionHistoryPage{Items: items, Total: total, Page: page, PageSize: size})
}

// requireEstablishments fails with 400 naming the first id that does not exist
func (h *Handler) requireEstablishments(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := h.db.ExistingEstablishmentIDs(ctx, ids)
	if err != nil {
		return err
	}
	if missing, ok := firstMissing(ids, found); ok {
		return errorx.ErrInvalidInput.
			WithMessage("Establishment %d does not exist", missing).
			Wrap(cnst.ErrInvalidEstablishment)
	}
	return nil
}

func firstMissing(want, found []uint) (uint, bool) {
	set := make(map[uint]struct{}, len(found))
	for _, id := range found {
		set[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := set[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

// uniqueIDs drops duplicates and zeros, keeping the first occurrence order
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func diffIDs(have, want []uint) (add, remove []uint) {
	haveSet := make(map[uint]struct{}, len(have))
	for _, id := range have {
		haveSet[id] = struct{}{}
	}
	wantSet := make(map[uint]struct{}, len(want))
	for _, id := range want {
		wantSet[id] = struct{}{}
		if _, ok := haveSet[id]; !ok {
			add = append(add, id)
		}
	}
	for _, id := range have {
		if _, ok := wantSet[id]; !ok {
			remove = append(remove, id)
		}
	}
	return add, remove
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
