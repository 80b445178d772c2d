// Package events delivers wallet lifecycle events to Kafka or the log.
//
// Services publish through Async, which queues events and hands them to a
// sink in the background so a slow broker never delays an API response.
package events

import (
	"context"

	"walletverify/internal/wallet/models"
)

// Publisher delivers one event.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}
