package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
)

// NewSQLite opens a SQLite database. The pool is pinned to one connection so
// transactions serialise instead of failing with SQLITE_BUSY.
func NewSQLite(cfg *config.DatabaseConfig, lg *zap.Logger) (Database, error) {
	if cfg.DBName != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBName), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	pinned := *cfg
	pinned.MaxOpenConns = 1
	pinned.MaxIdleConns = 1
	if cfg.DBName == ":memory:" {
		pinned.ConnMaxLifetime = 0
	}
	return open(sqlite.Open(cfg.DBName), &pinned, lg)
}
