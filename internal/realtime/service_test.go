package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_IngestBroadcastsAndAlerts(t *testing.T) {
	db := newRealtimeDB(t)
	hub := NewHub(zap.NewNop(), nil, time.Minute, nil)
	alerter := NewAlerter(db, map[string]config.ThresholdConfig{"ph": {Min: ptr(6.5), Max: ptr(8.5)}}, time.Hour, zap.NewNop())
	svc := NewService(hub, NewMemoryBroker(), alerter, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))

	err := svc.Ingest(ctx, []Reading{
		{DeviceID: "12345", Metric: "ph", Value: 9.2, Timestamp: time.Now()},
		{DeviceID: "12345", Metric: "tds", Value: 100, Timestamp: time.Now()},
	})
	require.NoError(t, err)

	latest := svc.Hub().Latest("12345")
	assert.Len(t, latest, 2)

	list, err := db.ListNotifications(ctx, database.NotificationFilter{Type: cnst.NotificationSensor})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
