package database

import (
	"context"
	"time"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

func (d *gormDB) CreateEstablishment(ctx context.Context, est *Establishment) error {
	return mapError(getDBFromContext(ctx, d.db).Create(est).Error)
}

func (d *gormDB) GetEstablishment(ctx context.Context, id uint) (*Establishment, error) {
	var est Establishment
	if err := getDBFromContext(ctx, d.db).First(&est, id).Error; err != nil {
		return nil, mapError(err)
	}
	if err := d.attachSensors(ctx, []*Establishment{&est}); err != nil {
		return nil, err
	}
	return &est, nil
}

func (d *gormDB) GetEstablishmentByDeviceID(ctx context.Context, deviceID string) (*Establishment, error) {
	var est Establishment
	if err := getDBFromContext(ctx, d.db).Where("device_id = ?", deviceID).First(&est).Error; err != nil {
		return nil, mapError(err)
	}
	if err := d.attachSensors(ctx, []*Establishment{&est}); err != nil {
		return nil, err
	}
	return &est, nil
}

func (d *gormDB) ListEstablishments(ctx context.Context) ([]*Establishment, error) {
	var list []*Establishment
	if err := getDBFromContext(ctx, d.db).Order("id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, d.attachSensors(ctx, list)
}

func (d *gormDB) ListEstablishmentsByIDs(ctx context.Context, ids []uint) ([]*Establishment, error) {
	if len(ids) == 0 {
		return []*Establishment{}, nil
	}
	var list []*Establishment
	if err := getDBFromContext(ctx, d.db).Where("id IN ?", ids).Order("id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, d.attachSensors(ctx, list)
}

func (d *gormDB) EstablishmentConflict(ctx context.Context, name, deviceID string, excludeID uint) (bool, error) {
	var count int64
	q := getDBFromContext(ctx, d.db).Model(&Establishment{}).
		Where("(name = ? OR device_id = ?)", name, deviceID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (d *gormDB) UpdateEstablishment(ctx context.Context, est *Establishment) error {
	res := getDBFromContext(ctx, d.db).Model(&Establishment{}).
		Where("id = ?", est.ID).
		Updates(map[string]any{"name": est.Name, "device_id": est.DeviceID, "updated_at": time.Now()})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return cnst.ErrNotFound
	}
	return nil
}

func (d *gormDB) DeleteEstablishment(ctx context.Context, id uint) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		db := getDBFromContext(ctx, d.db)
		if err := db.Where("establishment_id = ?", id).Delete(&EstablishmentSensor{}).Error; err != nil {
			return err
		}
		if err := db.Where("establishment_id = ?", id).Delete(&AdminEstablishment{}).Error; err != nil {
			return err
		}
		res := db.Delete(&Establishment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return cnst.ErrNotFound
		}
		return nil
	})
}

func (d *gormDB) ExistingEstablishmentIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return d.existingIDs(ctx, &Establishment{}, ids)
}

func (d *gormDB) SetEstablishmentSensors(ctx context.Context, establishmentID uint, sensorIDs []uint) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		db := getDBFromContext(ctx, d.db)
		if err := db.Where("establishment_id = ?", establishmentID).Delete(&EstablishmentSensor{}).Error; err != nil {
			return err
		}
		if len(sensorIDs) == 0 {
			return nil
		}
		now := time.Now()
		rows := make([]EstablishmentSensor, 0, len(sensorIDs))
		for _, id := range sensorIDs {
			rows = append(rows, EstablishmentSensor{EstablishmentID: establishmentID, SensorID: id, CreatedAt: now})
		}
		return mapError(db.Create(&rows).Error)
	})
}

// attachSensors loads the linked sensors of every establishment in one query
func (d *gormDB) attachSensors(ctx context.Context, list []*Establishment) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(list))
	byID := make(map[uint]*Establishment, len(list))
	for _, est := range list {
		est.Sensors = []Sensor{}
		ids = append(ids, est.ID)
		byID[est.ID] = est
	}

	var rows []struct {
		Sensor          `gorm:"embedded"`
		EstablishmentID uint
	}
	err := getDBFromContext(ctx, d.db).Table("sensors").
		Select("sensors.*, establishment_sensors.establishment_id").
		Joins("JOIN establishment_sensors ON establishment_sensors.sensor_id = sensors.id").
		Where("establishment_sensors.establishment_id IN ?", ids).
		Order("sensors.id asc").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		if est := byID[r.EstablishmentID]; est != nil {
			est.Sensors = append(est.Sensors, r.Sensor)
		}
	}
	return nil
}

// existingIDs filters ids down to those present in model's table, keeping input order
func (d *gormDB) existingIDs(ctx context.Context, model any, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var found []uint
	if err := getDBFromContext(ctx, d.db).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	set := make(map[uint]struct{}, len(found))
	for _, id := range found {
		set[id] = struct{}{}
	}
	out := make([]uint, 0, len(found))
	seen := make(map[uint]struct{}, len(found))
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
