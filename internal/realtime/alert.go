package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"go.uber.org/zap"
)

// Alerter raises sensor notifications for readings outside their configured
// range, at most once per device and metric within the cooldown window.
type Alerter struct {
	db         database.Database
	thresholds map[string]config.ThresholdConfig
	window     time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewAlerter(db database.Database, thresholds map[string]config.ThresholdConfig, window time.Duration, lg *zap.Logger) *Alerter {
	normalized := make(map[string]config.ThresholdConfig, len(thresholds))
	for k, v := range thresholds {
		normalized[NormalizeMetric(k)] = v
	}
	return &Alerter{
		db:         db,
		thresholds: normalized,
		window:     window,
		logger:     lg.Named("realtime.alert"),
		now:        time.Now,
		last:       make(map[string]time.Time),
	}
}

// Check stores a notification when r breaches its threshold. It reports
// whether a notification was written.
func (a *Alerter) Check(ctx context.Context, r Reading) (bool, error) {
	th, ok := a.thresholds[r.Metric]
	if !ok || !breaches(th, r.Value) {
		return false, nil
	}

	key := r.DeviceID + "|" + r.Metric
	now := a.now()
	a.mu.Lock()
	if last, seen := a.last[key]; seen && now.Sub(last) < a.window {
		a.mu.Unlock()
		return false, nil
	}
	a.last[key] = now
	a.mu.Unlock()

	n := &database.Notification{
		Type:     cnst.NotificationSensor,
		Title:    fmt.Sprintf("%s reading out of range", strings.ToUpper(r.Metric)),
		Message:  fmt.Sprintf("Device %s reported %s=%.2f (%s)", r.DeviceID, r.Metric, r.Value, describe(th)),
		DeviceID: r.DeviceID,
		Priority: cnst.PriorityHigh,
		Status:   cnst.StatusActive,
	}
	est, err := a.db.GetEstablishmentByDeviceID(ctx, r.DeviceID)
	switch {
	case err == nil:
		n.RelatedID = &est.ID
	case !errors.Is(err, cnst.ErrNotFound):
		a.forget(key)
		return false, err
	}

	if err := a.db.CreateNotification(ctx, n); err != nil {
		a.forget(key)
		return false, err
	}
	a.logger.Info("sensor alert raised",
		zap.String("device_id", r.DeviceID),
		zap.String("metric", r.Metric),
		zap.Float64("value", r.Value))
	return true, nil
}

func (a *Alerter) forget(key string) {
	a.mu.Lock()
	delete(a.last, key)
	a.mu.Unlock()
}

func breaches(th config.ThresholdConfig, v float64) bool {
	return (th.Min != nil && v < *th.Min) || (th.Max != nil && v > *th.Max)
}

func describe(th config.ThresholdConfig) string {
	switch {
	case th.Min != nil && th.Max != nil:
		return fmt.Sprintf("allowed %.2f to %.2f", *th.Min, *th.Max)
	case th.Min != nil:
		return fmt.Sprintf("minimum %.2f", *th.Min)
	default:
		return fmt.Sprintf("maximum %.2f", *th.Max)
	}
}
