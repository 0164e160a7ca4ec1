package database

import (
	"context"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"gorm.io/gorm"
)

func (d *gormDB) CreateNotification(ctx context.Context, n *Notification) error {
	return mapError(getDBFromContext(ctx, d.db).Create(n).Error)
}

func (d *gormDB) HasPendingRequest(ctx context.Context, userID uint, deviceID string) (bool, error) {
	var count int64
	err := getDBFromContext(ctx, d.db).Model(&Notification{}).
		Where("type = ? AND status = ? AND user_id = ? AND device_id = ?",
			cnst.NotificationRequest, cnst.StatusPending, userID, deviceID).
		Count(&count).Error
	return count > 0, err
}

func (d *gormDB) GetPendingRequest(ctx context.Context, id uint) (*Notification, error) {
	var n Notification
	err := getDBFromContext(ctx, d.db).
		Where("id = ? AND type = ? AND status = ?", id, cnst.NotificationRequest, cnst.StatusPending).
		First(&n).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &n, nil
}

func (d *gormDB) ApproveRequest(ctx context.Context, id uint) (int64, error) {
	res := getDBFromContext(ctx, d.db).Model(&Notification{}).
		Where("id = ? AND type = ? AND status = ?", id, cnst.NotificationRequest, cnst.StatusPending).
		Updates(map[string]any{"status": cnst.StatusApproved, "is_read": true})
	return res.RowsAffected, res.Error
}

func (d *gormDB) ListNotifications(ctx context.Context, filter NotificationFilter) ([]*Notification, error) {
	var list []*Notification
	q := scopeUser(getDBFromContext(ctx, d.db), filter.UserID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	err := q.Order("created_at desc, id desc").Find(&list).Error
	return list, err
}

func (d *gormDB) MarkNotificationsRead(ctx context.Context, userID *uint, ids []uint) (int64, error) {
	q := scopeUser(getDBFromContext(ctx, d.db).Model(&Notification{}), userID).Where("is_read = ?", false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (d *gormDB) DeleteNotification(ctx context.Context, id uint, userID *uint) (int64, error) {
	res := scopeUser(getDBFromContext(ctx, d.db), userID).Where("id = ?", id).Delete(&Notification{})
	return res.RowsAffected, res.Error
}

func (d *gormDB) DeleteAllNotifications(ctx context.Context, userID uint) (int64, error) {
	res := getDBFromContext(ctx, d.db).Where("user_id = ?", userID).Delete(&Notification{})
	return res.RowsAffected, res.Error
}

func (d *gormDB) CountUnread(ctx context.Context, userID *uint) (int64, error) {
	var count int64
	err := scopeUser(getDBFromContext(ctx, d.db).Model(&Notification{}), userID).
		Where("is_read = ?", false).
		Count(&count).Error
	return count, err
}

func scopeUser(q *gorm.DB, userID *uint) *gorm.DB {
	if userID == nil {
		return q
	}
	return q.Where("user_id = ?", *userID)
}
