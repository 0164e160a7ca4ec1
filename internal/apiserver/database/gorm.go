package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormDB implements Database for every gorm dialect
type gormDB struct {
	db     *gorm.DB
	logger *zap.Logger
}

func open(dialector gorm.Dialector, cfg *config.DatabaseConfig, lg *zap.Logger) (*gormDB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := gdb.AutoMigrate(models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if lg == nil {
		lg = zap.NewNop()
	}
	lg.Info("database ready",
		zap.String("type", cfg.Type),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))
	return &gormDB{db: gdb, logger: lg.Named("database")}, nil
}

// NewWithDB wraps an already opened gorm handle without migrating it
func NewWithDB(gdb *gorm.DB) Database {
	return &gormDB{db: gdb, logger: zap.NewNop()}
}

// Close closes the database connection
func (d *gormDB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *gormDB) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// mapError converts driver errors to the package sentinels
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return cnst.ErrNotFound
	case isDuplicateKey(err):
		return fmt.Errorf("%w: %v", cnst.ErrDuplicate, err)
	default:
		return err
	}
}

// isDuplicateKey detects unique violations across drivers, translated or not
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry")
}
