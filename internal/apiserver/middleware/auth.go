package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/amoylab/hydrowatch/internal/auth/jwt"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

// DeviceChecker resolves whether an admin manages a device
type DeviceChecker interface {
	AdminHasDevice(ctx context.Context, userID uint, deviceID string) (bool, error)
}

// Authenticator verifies bearer tokens and enforces role and device policy
type Authenticator struct {
	jwt     *jwt.Service
	devices DeviceChecker
	errs    *errorx.ErrorHandler
}

func NewAuthenticator(jwtService *jwt.Service, devices DeviceChecker, errs *errorx.ErrorHandler) *Authenticator {
	return &Authenticator{jwt: jwtService, devices: devices, errs: errs}
}

// Authenticate validates a raw token. Bad or expired tokens are 401; a
// verified token with a malformed payload is 403.
func (a *Authenticator) Authenticate(token string) (*jwt.Claims, error) {
	if token == "" {
		return nil, errorx.ErrUnauthorized
	}
	claims, err := a.jwt.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, errorx.ErrTokenExpired.Wrap(err)
		}
		return nil, errorx.ErrUnauthorized.Wrap(err)
	}
	if err := claims.CheckPayload(); err != nil {
		return nil, errorx.ErrMalformedToken.Wrap(err)
	}
	return claims, nil
}

// Require authenticates the request and checks the caller holds at least min
func (a *Authenticator) Require(min cnst.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.Authenticate(BearerToken(c))
		if err != nil {
			a.errs.Respond(c, err)
			return
		}
		if !claims.Role.Satisfies(min) {
			a.errs.Respond(c, errorx.ErrForbidden)
			return
		}
		c.Set(cnst.CtxKeyClaims, claims)
		c.Next()
	}
}

// RequireDevice checks the caller may read the device named by the route
// parameter. It must run after Require.
func (a *Authenticator) RequireDevice(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			a.errs.Respond(c, errorx.ErrUnauthorized)
			return
		}
		allowed, err := a.CanAccessDevice(c.Request.Context(), claims, c.Param(param))
		if err != nil {
			a.errs.Respond(c, errorx.Database(err))
			return
		}
		if !allowed {
			a.errs.Respond(c, errorx.ErrForbidden)
			return
		}
		c.Next()
	}
}

// CanAccessDevice applies the device policy: Super Admin always, a verified
// User only for the device bound to the token, Admin through assigned
// establishments.
func (a *Authenticator) CanAccessDevice(ctx context.Context, claims *jwt.Claims, deviceID string) (bool, error) {
	switch claims.Role {
	case cnst.RoleSuperAdmin:
		return true, nil
	case cnst.RoleAdmin:
		if deviceID == "" {
			return false, nil
		}
		return a.devices.AdminHasDevice(ctx, claims.UserID, deviceID)
	case cnst.RoleUser:
		return claims.IsVerified && deviceID != "" && claims.DeviceID == deviceID, nil
	default:
		return false, nil
	}
}

// BearerToken extracts the token from the Authorization header
func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetClaims returns the claims set by Require
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(cnst.CtxKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
