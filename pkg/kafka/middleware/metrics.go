package kafka_middleware

import (
	"context"

	"medassist/pkg/kafka"
	"medassist/pkg/metrics"
)

// MetricsProducerMiddleware counts publishes by event type and status.
func MetricsProducerMiddleware(m *metrics.ClinicMetrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		m.ObserveEvent(msg.GetEventType(), err)
		return err
	}
}
