// Package feed merges persisted notifications with scheduled events into
// the single list the dashboards render.
package feed

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Item is one feed entry. Persisted notifications keep their numeric id as
// a string; events use the "event-" prefix.
type Item struct {
	ID        string                  `json:"id"`
	Type      cnst.NotificationType   `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	UserID    *uint                   `json:"userId,omitempty"`
	RelatedID *uint                   `json:"relatedId,omitempty"`
	DeviceID  string                  `json:"deviceId,omitempty"`
	Priority  cnst.Priority           `json:"priority"`
	Status    cnst.NotificationStatus `json:"status"`
	Read      bool                    `json:"read"`
	Timestamp time.Time               `json:"timestamp"`
}

func FromNotification(n *database.Notification) Item {
	return Item{
		ID:        strconv.FormatUint(uint64(n.ID), 10),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		UserID:    n.UserID,
		RelatedID: n.RelatedID,
		DeviceID:  n.DeviceID,
		Priority:  n.Priority,
		Status:    n.Status,
		Read:      n.IsRead,
		Timestamp: n.CreatedAt,
	}
}

// FromEvent derives the read-only schedule entry for an event. The
// timestamp is the event's date and time in loc, or its creation time when
// those do not parse.
func FromEvent(e *database.Event, loc *time.Location) Item {
	id := e.ID
	ts, err := EventTime(e.Date, e.Time, loc)
	if err != nil {
		ts = e.CreatedAt
	}
	return Item{
		ID:        EventID(e.ID),
		Type:      cnst.NotificationSchedule,
		Title:     e.Title,
		Message:   fmt.Sprintf("Scheduled on %s at %s: %s", e.Date, e.Time, e.Description),
		RelatedID: &id,
		Priority:  cnst.PriorityMedium,
		Status:    cnst.StatusActive,
		Read:      false,
		Timestamp: ts,
	}
}

// Merge returns notifications followed by events, sorted newest first.
// Ties keep that order.
func Merge(notifications []*database.Notification, events []*database.Event, loc *time.Location) []Item {
	items := make([]Item, 0, len(notifications)+len(events))
	for _, n := range notifications {
		items = append(items, FromNotification(n))
	}
	for _, e := range events {
		items = append(items, FromEvent(e, loc))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items
}

func EventID(id uint) string {
	return cnst.EventIDPrefix + strconv.FormatUint(uint64(id), 10)
}

// IsEventID reports whether id names a derived event entry
func IsEventID(id string) bool {
	return strings.HasPrefix(id, cnst.EventIDPrefix)
}

// NotificationIDs keeps the numeric ids, skipping event and malformed ids
func NotificationIDs(ids []string) []uint {
	out := make([]uint, 0, len(ids))
	for _, raw := range ids {
		if IsEventID(raw) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil || n == 0 {
			continue
		}
		out = append(out, uint(n))
	}
	return out
}

// EventTime parses an event's date and time in loc
func EventTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
}
