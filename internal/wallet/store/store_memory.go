package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"walletverify/internal/wallet/models"
	"walletverify/pkg/platform/sentinel"
	psync "walletverify/pkg/platform/sync"
)

// InMemory stores wallet records in a map.
//
// Read-modify-write for one address runs under that address's shard lock.
// mu only guards the map itself and is held for single lookups and stores.
// Stored records are never mutated; writers build a new record and swap it in.
type InMemory struct {
	locks   *psync.ShardedMutex
	mu      sync.RWMutex
	wallets map[models.Address]*models.WalletRecord
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		locks:   psync.NewShardedMutex(),
		wallets: make(map[models.Address]*models.WalletRecord),
	}
}

func (s *InMemory) load(address models.Address) (*models.WalletRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.wallets[address]
	return record, ok
}

func (s *InMemory) put(record *models.WalletRecord) {
	s.mu.Lock()
	s.wallets[record.Address] = record
	s.mu.Unlock()
}

func (s *InMemory) Upsert(_ context.Context, address models.Address, fingerprint string, now time.Time) (*models.WalletRecord, bool, error) {
	s.locks.Lock(address.String())
	defer s.locks.Unlock(address.String())

	existing, ok := s.load(address)
	if !ok {
		record := &models.WalletRecord{
			Address:     address,
			Fingerprint: fingerprint,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.put(record)
		return record.Clone(), true, nil
	}

	next := existing.Clone()
	next.Fingerprint = fingerprint
	next.Verified = false
	next.VerifiedAt = nil
	next.UpdatedAt = now
	s.put(next)
	return next.Clone(), false, nil
}

func (s *InMemory) Get(_ context.Context, address models.Address) (*models.WalletRecord, error) {
	if record, ok := s.load(address); ok {
		return record.Clone(), nil
	}
	return nil, fmt.Errorf("wallet %s: %w", address, sentinel.ErrNotFound)
}

func (s *InMemory) SetVerified(_ context.Context, address models.Address, expectedFingerprint string, at time.Time) (*models.WalletRecord, error) {
	s.locks.Lock(address.String())
	defer s.locks.Unlock(address.String())

	existing, ok := s.load(address)
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", address, sentinel.ErrNotFound)
	}
	if existing.Fingerprint != expectedFingerprint {
		return nil, fmt.Errorf("wallet %s fingerprint changed: %w", address, sentinel.ErrConflict)
	}

	verifiedAt := notBefore(at, existing.CreatedAt)
	next := existing.Clone()
	next.Verified = true
	next.VerifiedAt = &verifiedAt
	next.UpdatedAt = verifiedAt
	s.put(next)
	return next.Clone(), nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.WalletRecord, error) {
	s.mu.RLock()
	out := make([]*models.WalletRecord, 0, len(s.wallets))
	for _, record := range s.wallets {
		out = append(out, record.Clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.Stats{TotalWallets: len(s.wallets)}
	for _, record := range s.wallets {
		if record.Verified {
			stats.VerifiedWallets++
		}
	}
	return stats, nil
}

// Health always succeeds.
func (s *InMemory) Health(context.Context) error { return nil }
