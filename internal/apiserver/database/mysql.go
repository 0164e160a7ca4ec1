package database

import (
	"github.com/amoylab/hydrowatch/internal/common/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
)

// NewMySQL opens a MySQL database
func NewMySQL(cfg *config.DatabaseConfig, lg *zap.Logger) (Database, error) {
	return open(mysql.Open(cfg.GetDSN()), cfg, lg)
}
