package service

import (
	"context"
	"time"

	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/oracle"
)

// Store persists one WalletRecord per address. Implementations return
// sentinel.ErrNotFound and sentinel.ErrConflict; anything else is treated as
// the store being unavailable.
type Store interface {
	Upsert(ctx context.Context, address models.Address, fingerprint string, now time.Time) (*models.WalletRecord, bool, error)
	Get(ctx context.Context, address models.Address) (*models.WalletRecord, error)
	SetVerified(ctx context.Context, address models.Address, expectedFingerprint string, at time.Time) (*models.WalletRecord, error)
	ListAll(ctx context.Context) ([]*models.WalletRecord, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Oracle reads the authoritative fingerprint from the ledger.
type Oracle interface {
	ReadFingerprint(ctx context.Context, address models.Address) (oracle.Reading, error)
}

// EventPublisher delivers wallet events. Failures never fail the operation
// that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// ReadingCache holds ledger readings in front of the Oracle. Invalidate
// failures are logged and never fail a registration.
type ReadingCache interface {
	Invalidate(ctx context.Context, address models.Address) error
}
