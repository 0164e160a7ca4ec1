package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.APIServerConfig {
	t.Helper()
	cfg := &config.APIServerConfig{}
	cfg.Server.Mode = "test"
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "apiserver.db")}
	cfg.JWT.SecretKey = strings.Repeat("s", 32)
	cfg.Metrics.Enabled = true
	cfg.RateLimit.Enabled = true
	cfg.CORS.AllowOrigins = []string{"https://dash.example"}
	cfg.ApplyDefaults()
	return cfg
}

func TestInitLogger(t *testing.T) {
	lg := initLogger(&config.APIServerConfig{})
	require.NotNil(t, lg)
	_ = lg.Sync()
}

func TestInitDatabase_SQLite(t *testing.T) {
	db := initDatabase(zap.NewNop(), &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "apiserver.db")})
	t.Cleanup(func() { _ = db.Close() })
	assert.NoError(t, db.Ping(context.Background()))
}

func TestInitSuperAdmin(t *testing.T) {
	ctx := context.Background()
	db := initDatabase(zap.NewNop(), &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "apiserver.db")})
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, initSuperAdmin(ctx, zap.NewNop(), db, &config.SuperAdminConfig{}))
	n, err := db.CountUsersByRole(ctx, cnst.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Zero(t, n)

	sa := &config.SuperAdminConfig{Username: "root", Email: "root@example.com", Password: "changeme123"}
	require.NoError(t, initSuperAdmin(ctx, zap.NewNop(), db, sa))
	require.NoError(t, initSuperAdmin(ctx, zap.NewNop(), db, sa))
	n, err = db.CountUsersByRole(ctx, cnst.RoleSuperAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestInitI18n(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.toml"), []byte("[MailOTPSubject]\nother = \"Your code\"\n"), 0o644))
	tr := initI18n(&config.I18nConfig{DefaultLang: "en", Path: dir})
	require.NotNil(t, tr)
	assert.Equal(t, "Your code", tr.Translate("MailOTPSubject", "en", nil))

	// a missing override directory only logs
	assert.NotNil(t, initI18n(&config.I18nConfig{Path: filepath.Join(dir, "missing")}))
}

func TestInitRouter_Constructs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	lg := zap.NewNop()
	db := initDatabase(lg, &cfg.Database)
	t.Cleanup(func() { _ = db.Close() })

	a, err := initApp(ctx, lg, cfg, db)
	require.NoError(t, err)
	t.Cleanup(a.close)
	r := initRouter(a)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(cnst.HeaderTraceID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hydrowatch_http_requests_total")

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://dash.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitApp_RejectsShortSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.SecretKey = "short"
	db := initDatabase(zap.NewNop(), &cfg.Database)
	t.Cleanup(func() { _ = db.Close() })
	_, err := initApp(context.Background(), zap.NewNop(), cfg, db)
	assert.Error(t, err)
}
