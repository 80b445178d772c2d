// Package store persists wallet records.
//
// Error contract, shared by every implementation:
//   - sentinel.ErrNotFound when the address has no record
//   - sentinel.ErrConflict when SetVerified finds a different fingerprint than expected
//   - SetVerified clamps verified_at to created_at when the supplied time is earlier
//   - any other error is an infrastructure failure, wrapped with context
//
// Records are returned as copies; mutating them never changes stored state.
package store

import (
	"sort"
	"time"

	"walletverify/internal/wallet/models"
)

// sortNewestFirst orders records by CreatedAt descending, then address ascending.
func sortNewestFirst(records []*models.WalletRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].Address < records[j].Address
	})
}

// notBefore returns at, or floor when at is earlier. A verification can
// race a registration whose clock read came later, and verified_at must
// never precede created_at.
func notBefore(at, floor time.Time) time.Time {
	if at.Before(floor) {
		return floor
	}
	return at
}
