package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/auth/jwt"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Signup registers a User account and mails the verification code
func (h *Handler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.bind(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		h.errs.Respond(c, errorx.ErrMissingField.WithMessage("username is required"))
		return
	}

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
		Phone:            req.Phone,
		Password:         hash,
		Role:             cnst.RoleUser,
		VerificationCode: code,
		OTPExpiry:        &expiry,
	}
	err = h.runWorkflow(c.Request.Context(), cnst.SpanSignup, "signup", func(ctx context.Context) error {
		exists, err := h.db.UserExists(ctx, user.Email, user.Username)
		if err != nil {
			return err
		}
		if exists {
			return errorx.Conflict("A user with this email or username already exists")
		}
		if err := h.db.CreateUser(ctx, user); err != nil {
			return err
		}
		uid := user.ID
		return h.db.CreateNotification(ctx, &database.Notification{
			Type:      cnst.NotificationNewUser,
			Title:     "New user registered",
			Message:   fmt.Sprintf("%s (%s) signed up", user.Username, user.Email),
			RelatedID: &uid,
			Priority:  cnst.PriorityLow,
			Status:    cnst.StatusActive,
		})
	})
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	sent := h.outbox.Deliver(c.Request.Context(), h.composer.OTP(h.language(c), user.Email, user.Username, code, otpMinutes))
	c.JSON(http.StatusCreated, gin.H{
		"message":   "User registered. Check your email for the verification code.",
		"userId":    user.ID,
		"emailSent": sent,
	})
}

// Login checks the credentials and returns a signed token
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.db.GetUserByLogin(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, cnst.ErrNotFound) {
			h.errs.Respond(c, errorx.ErrInvalidCredentials)
			return
		}
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		h.errs.Respond(c, errorx.ErrInvalidCredentials)
		return
	}
	if !user.EmailVerified {
		h.errs.Respond(c, errorx.ErrEmailNotVerified)
		return
	}

	estIDs, err := h.establishmentIDsFor(ctx, user)
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	claims := jwt.Claims{
		UserID:           user.ID,
		Username:         user.Username,
		Role:             user.Role,
		IsVerified:       user.IsVerified,
		EmailVerified:    user.EmailVerified,
		EstablishmentIDs: estIDs,
	}
	if user.DeviceID != nil {
		claims.DeviceID = *user.DeviceID
	}
	token, err := h.jwt.GenerateToken(claims)
	if err != nil {
		h.errs.Respond(c, errorx.ErrInternalServer.Wrap(err))
		return
	}

	h.recordSession(c, user.ID, user.Username, cnst.SessionLogin)
	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:       token,
		User:        user,
		RedirectURL: redirectFor(user),
	})
}

// Logout records the session end; tokens are stateless and simply dropped
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	h.recordSession(c, claims.UserID, claims.Username, cnst.SessionLogout)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out"})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, cnst.ErrNotFound) {
			h.errs.Respond(c, errorx.ErrInvalidOTP)
			return
		}
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if user.EmailVerified {
		c.JSON(http.StatusOK, dto.MessageResponse{Message: "Email already verified"})
		return
	}
	if !h.codeValid(user.VerificationCode, req.OTP, user) {
		h.errs.Respond(c, errorx.ErrInvalidOTP)
		return
	}

	user.EmailVerified = true
	user.VerificationCode = ""
	user.OTPExpiry = nil
	if err := h.db.UpdateUser(ctx, user); err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Email verified"})
}

// ResendOTP issues a new verification code. Unknown and already verified
// addresses get the same answer as pending ones.
func (h *Handler) ResendOTP(c *gin.Context) {
	var req dto.EmailRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	resp := dto.MessageResponse{Message: "If the address is awaiting verification, a new code has been sent"}

	user, err := h.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, cnst.ErrNotFound) {
		c.JSON(http.StatusOK, resp)
		return
	}
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if user.EmailVerified {
		c.JSON(http.StatusOK, resp)
		return
	}
	code, err := h.otp()
	if err != nil {
		h.errs.Respond(c, errorx.ErrInternalServer.Wrap(err))
		return
	}
	expiry := h.now().Add(otpTTL)
	user.VerificationCode = code
	user.OTPExpiry = &expiry
	if err := h.db.UpdateUser(ctx, user); err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}

	h.outbox.Deliver(ctx, h.composer.OTP(h.language(c), user.Email, user.Username, code, otpMinutes))
	c.JSON(http.StatusOK, resp)
}

// ForgotPassword mails a reset code. The answer is the same whether or not
// the address is registered.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req dto.EmailRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	resp := dto.MessageResponse{Message: "If the address is registered, a reset code has been sent"}

	user, err := h.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, cnst.ErrNotFound) {
		c.JSON(http.StatusOK, resp)
		return
	}
	if err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}

	code, err := h.otp()
	if err != nil {
		h.errs.Respond(c, errorx.ErrInternalServer.Wrap(err))
		return
	}
	expiry := h.now().Add(otpTTL)
	user.ResetOTP = code
	user.OTPExpiry = &expiry
	if err := h.db.UpdateUser(ctx, user); err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	h.outbox.Deliver(ctx, h.composer.Reset(h.language(c), user.Email, user.Username, code, otpMinutes))
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, cnst.ErrNotFound) {
			h.errs.Respond(c, errorx.ErrInvalidOTP)
			return
		}
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	if !h.codeValid(user.ResetOTP, req.OTP, user) {
		h.errs.Respond(c, errorx.ErrInvalidOTP)
		return
	}
	hash, err := h.hashPassword(req.NewPassword)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	user.Password = hash
	user.ResetOTP = ""
	user.OTPExpiry = nil
	if err := h.db.UpdateUser(ctx, user); err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}

// Me returns the caller's profile
func (h *Handler) Me(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	user, err := h.db.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	user, err := h.db.GetUserByID(ctx, claims.UserID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if name := strings.TrimSpace(req.Username); name != "" {
		user.Username = name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if err := h.db.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, cnst.ErrDuplicate) {
			h.errs.Respond(c, errorx.Conflict("Username already taken"))
			return
		}
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	user, err := h.db.GetUserByID(ctx, claims.UserID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		h.errs.Respond(c, errorx.ErrInvalidCredentials.WithMessage("Current password is incorrect"))
		return
	}
	hash, err := h.hashPassword(req.NewPassword)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	user.Password = hash
	if err := h.db.UpdateUser(ctx, user); err != nil {
		h.errs.Respond(c, errorx.Database(err))
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}

// codeValid compares a stored code against the submitted one and checks the expiry
func (h *Handler) codeValid(stored, submitted string, user *database.User) bool {
	if stored == "" || stored != submitted {
		return false
	}
	return user.OTPExpiry != nil && h.now().Before(*user.OTPExpiry)
}

// establishmentIDsFor resolves the establishments a token should carry
func (h *Handler) establishmentIDsFor(ctx context.Context, user *database.User) ([]uint, error) {
	switch user.Role {
	case cnst.RoleAdmin, cnst.RoleSuperAdmin:
		return h.db.GetAdminEstablishmentIDs(ctx, user.ID)
	default:
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
		return []uint{est.ID}, nil
	}
}

func (h *Handler) recordSession(c *gin.Context, userID uint, username string, kind cnst.SessionType) {
	entry := &database.SessionHistory{
		UserID:     userID,
		Username:   username,
		Type:       kind,
		IPAddress:  c.ClientIP(),
		DeviceInfo: truncate(c.Request.UserAgent(), 512),
	}
	if err := h.db.RecordSession(c.Request.Context(), entry); err != nil {
		h.logger.Warn("failed to record session", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func redirectFor(user *database.User) string {
	switch user.Role {
	case cnst.RoleSuperAdmin:
		return "/superadmin/dashboard"
	case cnst.RoleAdmin:
		return "/admin/dashboard"
	}
	if user.IsVerified {
		return "/dashboard"
	}
	return "/request-access"
}

// truncate caps s at n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
