package database

import "context"

func (d *gormDB) RecordSession(ctx context.Context, entry *SessionHistory) error {
	return getDBFromContext(ctx, d.db).Create(entry).Error
}

// ListSessionHistory returns one page, newest first, and the total row count
func (d *gormDB) ListSessionHistory(ctx context.Context, page, pageSize int) ([]*SessionHistory, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	db := getDBFromContext(ctx, d.db)

	var total int64
	if err := db.Model(&SessionHistory{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []*SessionHistory
	err := db.Order("created_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}
