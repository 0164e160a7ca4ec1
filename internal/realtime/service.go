package realtime

import (
	"context"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/pkg/metrics"
	"github.com/amoylab/hydrowatch/pkg/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Service ingests readings, raises alerts and fans them out through the broker
type Service struct {
	hub     *Hub
	broker  Broker
	alerter *Alerter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewService(hub *Hub, broker Broker, alerter *Alerter, m *metrics.Metrics, lg *zap.Logger) *Service {
	return &Service{hub: hub, broker: broker, alerter: alerter, metrics: m, logger: lg.Named("realtime")}
}

// Hub returns the websocket hub
func (s *Service) Hub() *Hub {
	return s.hub
}

// Start subscribes the hub to the broker and starts the heartbeat loop
func (s *Service) Start(ctx context.Context) error {
	if err := s.broker.Subscribe(ctx, s.hub.Broadcast); err != nil {
		return err
	}
	go s.hub.Run(ctx)
	return nil
}

// Ingest processes readings in order. Alert failures are logged and do not
// stop delivery; a publish failure is returned.
func (s *Service) Ingest(ctx context.Context, readings []Reading) error {
	for _, r := range readings {
		scope := trace.Tracer(cnst.TraceRealtime).Start(ctx, cnst.SpanReadingIngest).
			WithAttrs(attribute.String(cnst.AttrDeviceID, r.DeviceID), attribute.String(cnst.AttrMetric, r.Metric))

		s.metrics.Reading(r.Metric)
		if s.alerter != nil {
			if _, err := s.alerter.Check(scope.Ctx, r); err != nil {
				s.logger.Warn("failed to evaluate sensor alert", zap.String("device_id", r.DeviceID), zap.Error(err))
			}
		}
		if err := s.broker.Publish(scope.Ctx, r); err != nil {
			scope.Fail(err)
			scope.End()
			return err
		}
		scope.End()
	}
	return nil
}
