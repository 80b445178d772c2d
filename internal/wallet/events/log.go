package events

import (
	"context"
	"log/slog"

	"walletverify/internal/wallet/models"
)

// LogPublisher writes events to the structured log. It is the sink when no
// Kafka brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(ctx context.Context, event models.Event) error {
	l.logger.InfoContext(ctx, "wallet event",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"address", event.Address.String(),
		"occurred_at", event.OccurredAt,
		"request_id", event.RequestID,
		"payload", event.Payload,
	)
	return nil
}
