package database

import (
	"fmt"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"go.uber.org/zap"
)

// NewDatabase creates a new database based on configuration
func NewDatabase(cfg *config.DatabaseConfig, lg *zap.Logger) (Database, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgres(cfg, lg)
	case "sqlite":
		return NewSQLite(cfg, lg)
	case "mysql":
		return NewMySQL(cfg, lg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
