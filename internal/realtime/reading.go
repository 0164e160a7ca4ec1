package realtime

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidDeviceID = errors.New("device id must be exactly 5 digits")
	ErrNoReadings      = errors.New("payload carries no numeric readings")
)

var deviceIDPattern = regexp.MustCompile(`^\d{5}$`)

// ValidDeviceID reports whether id matches the five digit device format
func ValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

// Reading is one measurement pushed by the sensor bridge
type Reading struct {
	DeviceID  string    `json:"deviceId"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Update is the frame written to dashboard clients
type Update struct {
	Event     string    `json:"event"`
	DeviceID  string    `json:"deviceId"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

var eventNames = map[string]string{
	"salinity":    "updateSalinityData",
	"tds":         "updateTDSData",
	"ph":          "updatePHData",
	"temperature": "updateTemperatureData",
	"turbidity":   "updateTurbidityData",
	"ec":          "updateECData",
}

// NormalizeMetric lowercases a metric name and folds common aliases
func NormalizeMetric(metric string) string {
	m := strings.ToLower(strings.TrimSpace(metric))
	switch m {
	case "temp":
		return "temperature"
	case "conductivity":
		return "ec"
	}
	return m
}

// EventName maps a metric to the client event, falling back to updateData
func EventName(metric string) string {
	if name, ok := eventNames[NormalizeMetric(metric)]; ok {
		return name
	}
	return "updateData"
}

// ToUpdate converts a reading into its client frame
func (r Reading) ToUpdate() Update {
	return Update{
		Event:     EventName(r.Metric),
		DeviceID:  r.DeviceID,
		Metric:    r.Metric,
		Value:     r.Value,
		Timestamp: r.Timestamp,
	}
}

// ParseReadings decodes a bridge payload. Accepted shapes:
//
//	{"metric":"tds","value":310}
//	{"readings":{"tds":310,"salinity":0.4}}
//
// A "deviceId" field in the payload is used when deviceID is empty, and
// an optional "timestamp" (RFC 3339) overrides now.
func ParseReadings(deviceID string, body []byte, now time.Time) ([]Reading, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json payload")
	}
	doc := gjson.ParseBytes(body)

	if deviceID == "" {
		deviceID = doc.Get("deviceId").String()
	}
	if !ValidDeviceID(deviceID) {
		return nil, ErrInvalidDeviceID
	}

	ts := now
	if raw := doc.Get("timestamp"); raw.Exists() {
		if parsed, err := time.Parse(time.RFC3339, raw.String()); err == nil {
			ts = parsed
		}
	}

	var out []Reading
	if readings := doc.Get("readings"); readings.IsObject() {
		readings.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.Number {
				out = append(out, Reading{DeviceID: deviceID, Metric: NormalizeMetric(key.String()), Value: value.Float(), Timestamp: ts})
			}
			return true
		})
	} else if metric, value := doc.Get("metric"), doc.Get("value"); metric.Exists() && value.Type == gjson.Number {
		out = append(out, Reading{DeviceID: deviceID, Metric: NormalizeMetric(metric.String()), Value: value.Float(), Timestamp: ts})
	}

	if len(out) == 0 {
		return nil, ErrNoReadings
	}
	return out, nil
}
