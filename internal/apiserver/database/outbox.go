package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

func (d *gormDB) EnqueueMail(ctx context.Context, mail *MailOutbox) error {
	return getDBFromContext(ctx, d.db).Create(mail).Error
}

// PendingMail returns unsent mail with fewer than maxAttempts tries, oldest first
func (d *gormDB) PendingMail(ctx context.Context, maxAttempts, limit int) ([]*MailOutbox, error) {
	var list []*MailOutbox
	err := getDBFromContext(ctx, d.db).
		Where("sent_at IS NULL AND attempts < ?", maxAttempts).
		Order("id asc").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (d *gormDB) MarkMailSent(ctx context.Context, id uint, at time.Time) error {
	return getDBFromContext(ctx, d.db).Model(&MailOutbox{}).Where("id = ?", id).
		Updates(map[string]any{
			"sent_at":    at,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
		}).Error
}

func (d *gormDB) MarkMailFailed(ctx context.Context, id uint, reason string) error {
	return getDBFromContext(ctx, d.db).Model(&MailOutbox{}).Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}
