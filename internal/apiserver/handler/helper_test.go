package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/apiserver/middleware"
	"github.com/amoylab/hydrowatch/internal/auth/jwt"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/amoylab/hydrowatch/internal/i18n"
	"github.com/amoylab/hydrowatch/internal/mailer"
	"github.com/amoylab/hydrowatch/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword = "password123"
	testOTP      = "123456"
	bridgeKey    = "bridge-secret"
)

var errSMTPDown = errors.New("smtp: connection refused")

type testEnv struct {
	t  *testing.T
	db database.Database
	h  *Handler
	r  *gin.Engine

	jwt *jwt.Service

	mu      sync.Mutex
	sent    []mailer.Message
	mailErr error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	lg := zap.NewNop()

	db, err := database.NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "hw.db")}, lg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	jwtSvc, err := jwt.NewService(config.JWTConfig{SecretKey: strings.Repeat("k", 32), Duration: time.Hour})
	require.NoError(t, err)
	tr, err := i18n.New("en")
	require.NoError(t, err)

	e := &testEnv{t: t, db: db, jwt: jwtSvc}
	send := mailer.MailerFunc(func(_ context.Context, msg mailer.Message) error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.mailErr != nil {
			return e.mailErr
		}
		e.sent = append(e.sent, msg)
		return nil
	})

	hub := realtime.NewHub(lg, nil, time.Minute, nil)
	rt := realtime.NewService(hub, realtime.NewMemoryBroker(), nil, nil, lg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, rt.Start(ctx))

	cfg := &config.APIServerConfig{}
	cfg.Realtime.BridgeKey = bridgeKey
	errs := errorx.NewErrorHandler(lg)

	e.h = New(Options{
		DB:       db,
		JWT:      jwtSvc,
		Auth:     middleware.NewAuthenticator(jwtSvc, db, errs),
		Errors:   errs,
		Outbox:   mailer.NewOutbox(db, send, nil, 3, lg),
		Composer: mailer.NewComposer(tr, "http://localhost/verify"),
		I18n:     tr,
		Realtime: rt,
		Config:   cfg,
		Logger:   lg,
	})
	e.h.hashCost = bcrypt.MinCost
	e.h.otp = func() (string, error) { return testOTP, nil }
	e.h.loc = time.UTC

	e.r = gin.New()
	e.r.Use(errs.RecoveryMiddleware())
	e.h.Register(e.r, nil)
	e.r.NoRoute(errs.NoRoute)
	return e
}

func (e *testEnv) failMail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mailErr = err
}

func (e *testEnv) mails() []mailer.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]mailer.Message(nil), e.sent...)
}

type userOpt func(*database.User)

func unverifiedEmail(u *database.User) { u.EmailVerified = false }

// withDevice binds an approved device
func withDevice(id string) userOpt {
	return func(u *database.User) {
		u.DeviceID = &id
		u.IsVerified = true
	}
}

// pendingDevice binds a device that no admin approved yet
func pendingDevice(id string) userOpt {
	return func(u *database.User) { u.DeviceID = &id }
}

func (e *testEnv) seedUser(name string, role cnst.Role, opts ...userOpt) *database.User {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(e.t, err)
	u := &database.User{
		Username:      name,
		Email:         name + "@example.com",
		Password:      string(hash),
		Role:          role,
		EmailVerified: true,
		IsVerified:    role != cnst.RoleUser,
	}
	for _, o := range opts {
		o(u)
	}
	require.NoError(e.t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) seedEstablishment(name, deviceID string) *database.Establishment {
	e.t.Helper()
	est := &database.Establishment{Name: name, DeviceID: deviceID}
	require.NoError(e.t, e.db.CreateEstablishment(context.Background(), est))
	return est
}

func (e *testEnv) seedSensor(name string) *database.Sensor {
	e.t.Helper()
	s := &database.Sensor{Name: name}
	require.NoError(e.t, e.db.CreateSensor(context.Background(), s))
	return s
}

func (e *testEnv) token(u *database.User) string {
	e.t.Helper()
	claims := jwt.Claims{UserID: u.ID, Username: u.Username, Role: u.Role, IsVerified: u.IsVerified, EmailVerified: u.EmailVerified}
	if u.DeviceID != nil {
		claims.DeviceID = *u.DeviceID
	}
	tok, err := e.jwt.GenerateToken(claims)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path string, body any, token string, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	return decode[map[string]string](t, w)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
