package database

import (
	"github.com/amoylab/hydrowatch/internal/common/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
)

// NewPostgres opens a PostgreSQL database
func NewPostgres(cfg *config.DatabaseConfig, lg *zap.Logger) (Database, error) {
	return open(postgres.Open(cfg.GetDSN()), cfg, lg)
}
