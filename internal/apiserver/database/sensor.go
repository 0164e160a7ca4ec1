package database

import (
	"context"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

func (d *gormDB) CreateSensor(ctx context.Context, sensor *Sensor) error {
	return mapError(getDBFromContext(ctx, d.db).Create(sensor).Error)
}

func (d *gormDB) ListSensors(ctx context.Context) ([]*Sensor, error) {
	var sensors []*Sensor
	err := getDBFromContext(ctx, d.db).Order("id asc").Find(&sensors).Error
	return sensors, err
}

func (d *gormDB) DeleteSensor(ctx context.Context, id uint) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		db := getDBFromContext(ctx, d.db)
		if err := db.Where("sensor_id = ?", id).Delete(&EstablishmentSensor{}).Error; err != nil {
			return err
		}
		res := db.Delete(&Sensor{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return cnst.ErrNotFound
		}
		return nil
	})
}

func (d *gormDB) ExistingSensorIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return d.existingIDs(ctx, &Sensor{}, ids)
}
