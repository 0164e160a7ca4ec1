package database

import (
	"context"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

func (d *gormDB) CreateEvent(ctx context.Context, event *Event) error {
	return mapError(getDBFromContext(ctx, d.db).Create(event).Error)
}

func (d *gormDB) GetEvent(ctx context.Context, id uint) (*Event, error) {
	var event Event
	if err := getDBFromContext(ctx, d.db).First(&event, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &event, nil
}

func (d *gormDB) UpdateEvent(ctx context.Context, event *Event) error {
	res := getDBFromContext(ctx, d.db).Model(&Event{}).Where("id = ?", event.ID).
		Updates(map[string]any{
			"title":       event.Title,
			"date":        event.Date,
			"time":        event.Time,
			"description": event.Description,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return cnst.ErrNotFound
	}
	return nil
}

func (d *gormDB) DeleteEvent(ctx context.Context, id uint) error {
	res := getDBFromContext(ctx, d.db).Delete(&Event{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return cnst.ErrNotFound
	}
	return nil
}

func (d *gormDB) ListEvents(ctx context.Context) ([]*Event, error) {
	var events []*Event
	err := getDBFromContext(ctx, d.db).Order("date asc, time asc, id asc").Find(&events).Error
	return events, err
}

func (d *gormDB) ListEventsOn(ctx context.Context, date string) ([]*Event, error) {
	var events []*Event
	err := getDBFromContext(ctx, d.db).Where("date = ?", date).Order("time asc, id asc").Find(&events).Error
	return events, err
}
