package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupBody(name string) gin.H {
	return gin.H{
		"username":        name,
		"email":           name + "@example.com",
		"password":        testPassword,
		"confirmPassword": testPassword,
	}
}

func TestSignup(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	w := e.do(http.MethodPost, "/users", signupBody("carol"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, decode[gin.H](t, w)["emailSent"])

	u, err := e.db.GetUserByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, cnst.RoleUser, u.Role)
	assert.False(t, u.EmailVerified)
	assert.Equal(t, testOTP, u.VerificationCode)
	require.NotNil(t, u.OTPExpiry)

	mails := e.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "otp", mails[0].Kind)
	assert.Contains(t, mails[0].Body, testOTP)

	notes, err := e.db.ListNotifications(ctx, database.NotificationFilter{Type: cnst.NotificationNewUser})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, u.ID, *notes[0].RelatedID)

	w = e.do(http.MethodPost, "/users", signupBody("carol"), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignup_Validation(t *testing.T) {
	e := newTestEnv(t)

	body := signupBody("dave")
	body["confirmPassword"] = "different1"
	w := e.do(http.MethodPost, "/users", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match", errorBody(t, w)["error"])

	body = signupBody("dave")
	delete(body, "email")
	w = e.do(http.MethodPost, "/users", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email is required", errorBody(t, w)["error"])

	w = e.do(http.MethodPost, "/users", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	super := e.seedUser("root", cnst.RoleSuperAdmin)
	admin := e.seedUser("ada", cnst.RoleAdmin)
	est := e.seedEstablishment("Plant A", "12345")
	require.NoError(t, e.db.AssignEstablishments(context.Background(), admin.ID, []uint{est.ID}))
	e.seedUser("vera", cnst.RoleUser, withDevice("12345"))
	e.seedUser("newbie", cnst.RoleUser)
	e.seedUser("ghost", cnst.RoleUser, unverifiedEmail)

	cases := []struct {
		login    string
		redirect string
	}{
		{"root", "/superadmin/dashboard"},
		{"ada@example.com", "/admin/dashboard"},
		{"vera", "/dashboard"},
		{"newbie", "/request-access"},
	}
	for _, tc := range cases {
		t.Run(tc.login, func(t *testing.T) {
			w := e.do(http.MethodPost, "/login", gin.H{"identifier": tc.login, "password": testPassword}, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decode[dto.LoginResponse](t, w)
			assert.Equal(t, tc.redirect, resp.RedirectURL)
			assert.NotEmpty(t, resp.Token)

			claims, err := e.jwt.ValidateToken(resp.Token)
			require.NoError(t, err)
			assert.Equal(t, resp.User.ID, claims.UserID)
			assert.Equal(t, resp.User.Role, claims.Role)
		})
	}

	t.Run("token carries establishments and device", func(t *testing.T) {
		w := e.do(http.MethodPost, "/login", gin.H{"identifier": "ada", "password": testPassword}, "")
		claims, err := e.jwt.ValidateToken(decode[dto.LoginResponse](t, w).Token)
		require.NoError(t, err)
		assert.Equal(t, []uint{est.ID}, claims.EstablishmentIDs)

		w = e.do(http.MethodPost, "/login", gin.H{"identifier": "vera", "password": testPassword}, "")
		claims, err = e.jwt.ValidateToken(decode[dto.LoginResponse](t, w).Token)
		require.NoError(t, err)
		assert.Equal(t, "12345", claims.DeviceID)
		assert.Equal(t, []uint{est.ID}, claims.EstablishmentIDs)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := e.do(http.MethodPost, "/login", gin.H{"identifier": "root", "password": "nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := e.do(http.MethodPost, "/login", gin.H{"identifier": "nobody", "password": testPassword}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unverified email", func(t *testing.T) {
		w := e.do(http.MethodPost, "/login", gin.H{"identifier": "ghost", "password": testPassword}, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Email not verified", errorBody(t, w)["error"])
	})

	t.Run("login is recorded", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/admin/session-history?page=1&pageSize=50", nil, e.token(super))
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[dto.SessionHistoryPage](t, w)
		assert.GreaterOrEqual(t, page.Total, int64(len(cases)))
		assert.Equal(t, 50, page.PageSize)
	})
}

func TestVerifyOTP(t *testing.T) {
	e := newTestEnv(t)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/users", signupBody("olga"), "").Code)

	t.Run("wrong code", func(t *testing.T) {
		w := e.do(http.MethodPost, "/verify-otp", gin.H{"email": "olga@example.com", "otp": "000000"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errorx.ErrInvalidOTP.Code, errorBody(t, w)["code"])
	})

	t.Run("expired code", func(t *testing.T) {
		e.h.now = func() time.Time { return time.Now().Add(otpTTL + time.Minute) }
		defer func() { e.h.now = time.Now }()
		w := e.do(http.MethodPost, "/verify-otp", gin.H{"email": "olga@example.com", "otp": testOTP}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login blocked before verification", func(t *testing.T) {
		w := e.do(http.MethodPost, "/login", gin.H{"identifier": "olga", "password": testPassword}, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("correct code", func(t *testing.T) {
		w := e.do(http.MethodPost, "/verify-otp", gin.H{"email": "olga@example.com", "otp": testOTP}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		u, err := e.db.GetUserByEmail(context.Background(), "olga@example.com")
		require.NoError(t, err)
		assert.True(t, u.EmailVerified)
		assert.Empty(t, u.VerificationCode)
		assert.Nil(t, u.OTPExpiry)

		w = e.do(http.MethodPost, "/login", gin.H{"identifier": "olga", "password": testPassword}, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("resend after verification sends nothing", func(t *testing.T) {
		before := len(e.mails())
		w := e.do(http.MethodPost, "/resend-otp", gin.H{"email": "olga@example.com"}, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, e.mails(), before)
	})
}

func TestResendOTP(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser("pat", cnst.RoleUser, unverifiedEmail)

	known := e.do(http.MethodPost, "/resend-otp", gin.H{"email": "pat@example.com"}, "")
	require.Equal(t, http.StatusOK, known.Code)
	require.Len(t, e.mails(), 1)

	unknown := e.do(http.MethodPost, "/resend-otp", gin.H{"email": "missing@example.com"}, "")
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())
	assert.Len(t, e.mails(), 1)
}

func TestPasswordReset(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser("rita", cnst.RoleUser)

	w := e.do(http.MethodPost, "/forgot-password", gin.H{"email": "unknown@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.mails())

	w = e.do(http.MethodPost, "/forgot-password", gin.H{"email": "rita@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	mails := e.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "reset", mails[0].Kind)

	reset := gin.H{"email": "rita@example.com", "otp": "999999", "newPassword": "brandnew99", "confirmPassword": "brandnew99"}
	w = e.do(http.MethodPost, "/reset-password", reset, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reset["otp"] = testOTP
	w = e.do(http.MethodPost, "/reset-password", reset, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodPost, "/login", gin.H{"identifier": "rita", "password": "brandnew99"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// codes are single use
	w = e.do(http.MethodPost, "/reset-password", reset, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfile(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser("sam", cnst.RoleUser)
	e.seedUser("taken", cnst.RoleUser)
	tok := e.token(u)

	w := e.do(http.MethodGet, "/api/me", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[gin.H](t, w)
	assert.Equal(t, "sam", me["username"])
	assert.NotContains(t, me, "password")

	w = e.do(http.MethodPut, "/api/me", gin.H{"phone": "+33 1 23 45 67 89"}, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+33 1 23 45 67 89", decode[gin.H](t, w)["phone"])

	w = e.do(http.MethodPut, "/api/me", gin.H{"username": "taken"}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPut, "/api/me/password", gin.H{"oldPassword": "wrong", "newPassword": "another123"}, tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(http.MethodPut, "/api/me/password", gin.H{"oldPassword": testPassword, "newPassword": "another123"}, tok)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/me", nil, "").Code)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser("leo", cnst.RoleUser)

	w := e.do(http.MethodPost, "/logout", nil, e.token(u))
	require.Equal(t, http.StatusOK, w.Code)

	items, total, err := e.db.ListSessionHistory(context.Background(), 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, cnst.SessionLogout, items[0].Type)
	assert.Equal(t, u.ID, items[0].UserID)
}

func TestLogin_LongUserAgentStaysValidUTF8(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser("leo", cnst.RoleUser)

	ua := "a" + strings.Repeat("é", 600)
	w := e.do(http.MethodPost, "/login", gin.H{"identifier": "leo", "password": testPassword}, "", "User-Agent", ua)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	items, _, err := e.db.ListSessionHistory(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, utf8.ValidString(items[0].DeviceInfo))
	assert.Equal(t, 511, len(items[0].DeviceInfo))
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"aé", 2, "a"},
		{"aé", 3, "aé"},
		{"日本", 4, "日"},
		{"日本", 2, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, truncate(tc.in, tc.n), "%q/%d", tc.in, tc.n)
	}
}
