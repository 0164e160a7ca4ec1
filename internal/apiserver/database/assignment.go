package database

import (
	"context"
	"time"
)

func (d *gormDB) AssignEstablishments(ctx context.Context, userID uint, establishmentIDs []uint) error {
	if len(establishmentIDs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]AdminEstablishment, 0, len(establishmentIDs))
	for _, id := range establishmentIDs {
		rows = append(rows, AdminEstablishment{UserID: userID, EstablishmentID: id, CreatedAt: now})
	}
	return mapError(getDBFromContext(ctx, d.db).Create(&rows).Error)
}

func (d *gormDB) UnassignEstablishments(ctx context.Context, userID uint, establishmentIDs []uint) error {
	if len(establishmentIDs) == 0 {
		return nil
	}
	return getDBFromContext(ctx, d.db).
		Where("user_id = ? AND establishment_id IN ?", userID, establishmentIDs).
		Delete(&AdminEstablishment{}).Error
}

func (d *gormDB) GetAdminEstablishmentIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := getDBFromContext(ctx, d.db).Model(&AdminEstablishment{}).
		Where("user_id = ?", userID).
		Order("establishment_id asc").
		Pluck("establishment_id", &ids).Error
	return ids, err
}

func (d *gormDB) ListAdminEstablishments(ctx context.Context, userID uint) ([]*Establishment, error) {
	ids, err := d.GetAdminEstablishmentIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d.ListEstablishmentsByIDs(ctx, ids)
}

func (d *gormDB) AdminHasDevice(ctx context.Context, userID uint, deviceID string) (bool, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&AdminEstablishment{}).
		Joins("JOIN establishments ON establishments.id = admin_establishments.establishment_id").
		Where("admin_establishments.user_id = ? AND establishments.device_id = ?", userID, deviceID).
		Count(&count).Error
	return count > 0, err
}
