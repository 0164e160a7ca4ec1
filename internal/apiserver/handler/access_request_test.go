package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccessRequest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.seedUser("bob", cnst.RoleUser)
	tok := e.token(u)

	w := e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": "12345"}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	n := decode[database.Notification](t, w)
	assert.Equal(t, cnst.NotificationRequest, n.Type)
	assert.Equal(t, cnst.StatusPending, n.Status)
	assert.Equal(t, "12345", n.DeviceID)

	got, err := e.db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeviceID)
	assert.Equal(t, "12345", *got.DeviceID)

	w = e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": "12345"}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)

	// a different device is a different request
	w = e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": "54321"}, tok)
	assert.Equal(t, http.StatusCreated, w.Code)

	for _, bad := range []string{"1234", "123456", "abcde", ""} {
		w = e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": bad}, tok)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestCreateAccessRequest_Concurrent(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser("bob", cnst.RoleUser)
	tok := e.token(u)

	const n = 2
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": "12345"}, tok).Code
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)

	list, err := e.db.ListNotifications(context.Background(), database.NotificationFilter{Type: cnst.NotificationRequest})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApproveAccessRequest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.seedUser("ada", cnst.RoleAdmin)
	u := e.seedUser("bob", cnst.RoleUser)

	w := e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": "12345"}, e.token(u))
	require.Equal(t, http.StatusCreated, w.Code)
	n := decode[database.Notification](t, w)
	path := "/api/admin/access-requests/" + itoa(n.ID) + "/approve"

	w = e.do(http.MethodGet, "/api/admin/access-requests", nil, e.token(admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Notification](t, w), 1)

	t.Run("users cannot approve", func(t *testing.T) {
		w := e.do(http.MethodPut, path, gin.H{"userId": u.ID}, e.token(u))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown user rolls back", func(t *testing.T) {
		w := e.do(http.MethodPut, path, gin.H{"userId": 9999}, e.token(admin))
		assert.Equal(t, http.StatusNotFound, w.Code)
		list, err := e.db.ListNotifications(ctx, database.NotificationFilter{Status: cnst.StatusPending})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("unknown request rolls back user update", func(t *testing.T) {
		w := e.do(http.MethodPut, "/api/admin/access-requests/9999/approve", gin.H{"userId": u.ID}, e.token(admin))
		assert.Equal(t, http.StatusNotFound, w.Code)
		got, err := e.db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.IsVerified)
	})

	t.Run("approve", func(t *testing.T) {
		w := e.do(http.MethodPut, path, gin.H{"userId": u.ID}, e.token(admin))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		got, err := e.db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.IsVerified)

		list, err := e.db.ListNotifications(ctx, database.NotificationFilter{Type: cnst.NotificationRequest})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, cnst.StatusApproved, list[0].Status)
		assert.True(t, list[0].IsRead)
	})

	t.Run("second approval is not found", func(t *testing.T) {
		w := e.do(http.MethodPut, path, gin.H{"userId": u.ID}, e.token(admin))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("after approval a new request may be filed", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": "12345"}, e.token(u))
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func (e *testEnv) login(u *database.User) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/login", gin.H{"identifier": u.Username, "password": testPassword}, "")
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[dto.LoginResponse](e.t, w).Token
}

func (e *testEnv) fileRequest(u *database.User, deviceID string) *database.Notification {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/access-requests", gin.H{"deviceId": deviceID}, e.token(u))
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	n := decode[database.Notification](e.t, w)
	return &n
}

func TestAccessRequest_DeviceNeedsApproval(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser("ada", cnst.RoleAdmin)
	u := e.seedUser("bob", cnst.RoleUser)
	e.seedEstablishment("Plant A", "12345")
	e.seedEstablishment("Plant B", "22222")

	latest := func(tok, device string) int {
		return e.do(http.MethodGet, "/api/devices/"+device+"/latest", nil, tok).Code
	}
	establishments := func(tok string) int {
		w := e.do(http.MethodGet, "/api/establishments", nil, tok)
		require.Equal(t, http.StatusOK, w.Code)
		return len(decode[[]database.Establishment](t, w))
	}
	approve := func(n *database.Notification) {
		w := e.do(http.MethodPut, "/api/admin/access-requests/"+itoa(n.ID)+"/approve", gin.H{"userId": u.ID}, e.token(admin))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	first := e.fileRequest(u, "12345")
	tok := e.login(u)
	assert.Equal(t, http.StatusForbidden, latest(tok, "12345"))
	assert.Zero(t, establishments(tok))

	approve(first)
	tok = e.login(u)
	assert.Equal(t, http.StatusOK, latest(tok, "12345"))
	assert.Equal(t, 1, establishments(tok))

	// switching devices drops the approval until the new request is approved
	second := e.fileRequest(u, "22222")
	tok = e.login(u)
	assert.Equal(t, http.StatusForbidden, latest(tok, "22222"))
	assert.Equal(t, http.StatusForbidden, latest(tok, "12345"))
	assert.Zero(t, establishments(tok))

	approve(second)
	tok = e.login(u)
	assert.Equal(t, http.StatusOK, latest(tok, "22222"))
	assert.Equal(t, http.StatusForbidden, latest(tok, "12345"))
}

func TestApproveAccessRequest_BindsRequestedDevice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.seedUser("ada", cnst.RoleAdmin)
	u := e.seedUser("bob", cnst.RoleUser)
	other := e.seedUser("eve", cnst.RoleUser)

	older := e.fileRequest(u, "12345")
	e.fileRequest(u, "54321")

	w := e.do(http.MethodPut, "/api/admin/access-requests/"+itoa(older.ID)+"/approve", gin.H{"userId": other.ID}, e.token(admin))
	assert.Equal(t, http.StatusNotFound, w.Code)
	got, err := e.db.GetUserByID(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.IsVerified)
	assert.Nil(t, got.DeviceID)

	w = e.do(http.MethodPut, "/api/admin/access-requests/"+itoa(older.ID)+"/approve", gin.H{"userId": u.ID}, e.token(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got, err = e.db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	require.NotNil(t, got.DeviceID)
	assert.Equal(t, "12345", *got.DeviceID)
}
