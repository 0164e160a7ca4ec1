package dto

import (
	"bytes"
	"encoding/json"
)

// FeedID accepts either a numeric notification id or a string id such as "event-3"
type FeedID string

func (f *FeedID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FeedID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FeedID(n.String())
	return nil
}

// MarkReadRequest lists notification ids to mark read; empty means all.
// Derived event ids are ignored.
type MarkReadRequest struct {
	IDs []FeedID `json:"ids"`
}

type EventRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Date        string `json:"date" binding:"required"`
	Time        string `json:"time" binding:"required"`
	Description string `json:"description"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}
