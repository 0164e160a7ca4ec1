package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventName(t *testing.T) {
	tests := map[string]string{
		"salinity":     "updateSalinityData",
		"TDS":          "updateTDSData",
		"pH":           "updatePHData",
		"temp":         "updateTemperatureData",
		"turbidity":    "updateTurbidityData",
		"conductivity": "updateECData",
		"dissolved_o2": "updateData",
	}
	for metric, want := range tests {
		assert.Equal(t, want, EventName(metric), metric)
	}
}

func TestParseReadings_SingleMetric(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	got, err := ParseReadings("12345", []byte(`{"metric":"TDS","value":310}`), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Reading{DeviceID: "12345", Metric: "tds", Value: 310, Timestamp: now}, got[0])
	assert.Equal(t, "updateTDSData", got[0].ToUpdate().Event)
}

func TestParseReadings_Batch(t *testing.T) {
	body := []byte(`{"deviceId":"54321","timestamp":"2026-10-15T07:00:00Z","readings":{"tds":310,"salinity":0.4,"label":"x"}}`)
	got, err := ParseReadings("", body, time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "54321", r.DeviceID)
		assert.Equal(t, 2026, r.Timestamp.Year())
		assert.Equal(t, 7, r.Timestamp.Hour())
	}
}

func TestParseReadings_Errors(t *testing.T) {
	_, err := ParseReadings("12345", []byte(`{not json`), time.Now())
	assert.Error(t, err)

	_, err = ParseReadings("1234", []byte(`{"metric":"tds","value":1}`), time.Now())
	assert.ErrorIs(t, err, ErrInvalidDeviceID)

	_, err = ParseReadings("", []byte(`{"metric":"tds","value":1}`), time.Now())
	assert.ErrorIs(t, err, ErrInvalidDeviceID)

	_, err = ParseReadings("12345", []byte(`{"metric":"tds","value":"high"}`), time.Now())
	assert.ErrorIs(t, err, ErrNoReadings)
}

func TestValidDeviceID(t *testing.T) {
	assert.True(t, ValidDeviceID("00001"))
	assert.False(t, ValidDeviceID("123456"))
	assert.False(t, ValidDeviceID("12a45"))
	assert.False(t, ValidDeviceID(""))
}
