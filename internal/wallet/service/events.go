package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/tracer"
	"walletverify/pkg/requestcontext"
)

func newEvent(ctx context.Context, eventType models.EventType, address models.Address, at time.Time, payload any) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Address:    address,
		OccurredAt: at,
		RequestID:  requestcontext.RequestID(ctx),
		Payload:    payload,
	}
}

// publish hands event to p. Failures are logged only.
func publish(ctx context.Context, p EventPublisher, logger *slog.Logger, span tracer.Span, event models.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish wallet event",
			"event_type", string(event.Type),
			"address", event.Address.String(),
			"error", err,
		)
		return
	}
	span.AddEvent(tracer.EventEventEmitted, tracer.String("event.type", string(event.Type)))
}
