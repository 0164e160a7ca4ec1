package database

import (
	"context"
	"time"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

func (d *gormDB) CreateUser(ctx context.Context, user *User) error {
	return mapError(getDBFromContext(ctx, d.db).Create(user).Error)
}

func (d *gormDB) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := getDBFromContext(ctx, d.db).First(&user, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (d *gormDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := getDBFromContext(ctx, d.db).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (d *gormDB) GetUserByLogin(ctx context.Context, identifier string) (*User, error) {
	var user User
	err := getDBFromContext(ctx, d.db).
		Where("email = ? OR username = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (d *gormDB) UserExists(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	return count > 0, err
}

func (d *gormDB) UpdateUser(ctx context.Context, user *User) error {
	return mapError(getDBFromContext(ctx, d.db).Save(user).Error)
}

func (d *gormDB) SetUserDeviceID(ctx context.Context, userID uint, deviceID string) (int64, error) {
	db := getDBFromContext(ctx, d.db)
	now := time.Now()
	// a different device needs a fresh approval
	err := db.Model(&User{}).
		Where("id = ? AND (device_id IS NULL OR device_id <> ?)", userID, deviceID).
		Updates(map[string]any{"is_verified": false, "updated_at": now}).Error
	if err != nil {
		return 0, err
	}
	res := db.Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"device_id": deviceID, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (d *gormDB) SetUserVerified(ctx context.Context, userID uint, deviceID string) (int64, error) {
	res := getDBFromContext(ctx, d.db).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"is_verified": true, "device_id": deviceID, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (d *gormDB) ListUsers(ctx context.Context, roles ...cnst.Role) ([]*User, error) {
	var users []*User
	q := getDBFromContext(ctx, d.db).Order("id asc")
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}
	err := q.Find(&users).Error
	return users, err
}

func (d *gormDB) CountUsersByRole(ctx context.Context, role cnst.Role) (int64, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (d *gormDB) DeleteUser(ctx context.Context, id uint) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		db := getDBFromContext(ctx, d.db)
		if err := db.Where("user_id = ?", id).Delete(&AdminEstablishment{}).Error; err != nil {
			return err
		}
		res := db.Delete(&User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return cnst.ErrNotFound
		}
		return nil
	})
}

func (d *gormDB) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res := getDBFromContext(ctx, d.db).Model(&User{}).
		Where("otp_expiry IS NOT NULL AND otp_expiry < ?", now).
		Updates(map[string]any{
			"verification_code": "",
			"reset_otp":         "",
			"otp_expiry":        nil,
		})
	return res.RowsAffected, res.Error
}
