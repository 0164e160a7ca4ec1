package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amoylab/hydrowatch/internal/auth/jwt"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDevices map[uint][]string

func (f fakeDevices) AdminHasDevice(_ context.Context, userID uint, deviceID string) (bool, error) {
	for _, d := range f[userID] {
		if d == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func newAuthenticator(t *testing.T) (*Authenticator, *jwt.Service) {
	t.Helper()
	svc, err := jwt.NewService(config.JWTConfig{SecretKey: strings.Repeat("s", 32), Duration: time.Hour})
	require.NoError(t, err)
	devices := fakeDevices{2: {"11111"}}
	return NewAuthenticator(svc, devices, errorx.NewErrorHandler(zap.NewNop())), svc
}

func token(t *testing.T, svc *jwt.Service, id uint, role cnst.Role, device string) string {
	t.Helper()
	tok, err := svc.GenerateToken(jwt.Claims{UserID: id, Username: "u", Role: role, DeviceID: device, IsVerified: role != cnst.RoleUser || device != ""})
	require.NoError(t, err)
	return tok
}

func unverifiedToken(t *testing.T, svc *jwt.Service, id uint, device string) string {
	t.Helper()
	tok, err := svc.GenerateToken(jwt.Claims{UserID: id, Username: "u", Role: cnst.RoleUser, DeviceID: device})
	require.NoError(t, err)
	return tok
}

func setupRouter(a *Authenticator, min cnst.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/p", a.Require(min), func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": claims.UserID})
	})
	r.GET("/d/:deviceId", a.Require(cnst.RoleUser), a.RequireDevice("deviceId"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func do(r http.Handler, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequire(t *testing.T) {
	a, svc := newAuthenticator(t)
	r := setupRouter(a, cnst.RoleAdmin)

	t.Run("missing token", func(t *testing.T) {
		w := do(r, "/p", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := do(r, "/p", "not-a-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("insufficient role", func(t *testing.T) {
		w := do(r, "/p", token(t, svc, 1, cnst.RoleUser, ""))
		assert.Equal(t, http.StatusForbidden, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Access denied", body["error"])
	})

	t.Run("admin and super admin pass", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(r, "/p", token(t, svc, 2, cnst.RoleAdmin, "")).Code)
		w := do(r, "/p", token(t, svc, 3, cnst.RoleSuperAdmin, ""))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":3}`, w.Body.String())
	})
}

func TestRequire_MalformedPayload(t *testing.T) {
	a, svc := newAuthenticator(t)
	r := setupRouter(a, cnst.RoleUser)

	tok, err := svc.GenerateToken(jwt.Claims{UserID: 7, Role: cnst.Role("Janitor")})
	require.NoError(t, err)
	w := do(r, "/p", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), errorx.ErrMalformedToken.Code)
}

func TestRequireDevice(t *testing.T) {
	a, svc := newAuthenticator(t)
	r := setupRouter(a, cnst.RoleUser)

	cases := []struct {
		name   string
		tok    string
		device string
		want   int
	}{
		{"user own device", token(t, svc, 1, cnst.RoleUser, "12345"), "12345", http.StatusOK},
		{"user other device", token(t, svc, 1, cnst.RoleUser, "12345"), "54321", http.StatusForbidden},
		{"user without device", token(t, svc, 1, cnst.RoleUser, ""), "12345", http.StatusForbidden},
		{"unverified user own device", unverifiedToken(t, svc, 1, "12345"), "12345", http.StatusForbidden},
		{"admin assigned", token(t, svc, 2, cnst.RoleAdmin, ""), "11111", http.StatusOK},
		{"admin unassigned", token(t, svc, 2, cnst.RoleAdmin, ""), "12345", http.StatusForbidden},
		{"super admin", token(t, svc, 3, cnst.RoleSuperAdmin, ""), "99999", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, do(r, "/d/"+tc.device, tc.tok).Code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Empty(t, BearerToken(c))
	c.Request.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(c))
	c.Request.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", BearerToken(c))
}
