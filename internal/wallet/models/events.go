package models

import "time"

// EventType names a wallet lifecycle event. It is sent as the Kafka
// event_type header and the "type" field of logged events.
type EventType string

const (
	EventWalletRegistered       EventType = "wallet_registered"
	EventWalletVerified         EventType = "wallet_verified"
	EventReconciliationMismatch EventType = "reconciliation_mismatch"
)

// Event is the envelope published for every wallet event. Payload holds one
// of the typed events below.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Address    Address   `json:"address"`
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty"`
	Payload    any       `json:"payload"`
}

type WalletRegistered struct {
	Address           Address           `json:"address"`
	FingerprintFormat FingerprintFormat `json:"fingerprint_format"`
	Created           bool              `json:"created"`
}

type WalletVerified struct {
	Address    Address   `json:"address"`
	VerifiedAt time.Time `json:"verified_at"`
}

// ReconciliationMismatch carries no fingerprints; consumers look them up if needed.
type ReconciliationMismatch struct {
	Address Address `json:"address"`
}
