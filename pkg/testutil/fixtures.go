package testutil

import (
	"time"

	"walletverify/internal/wallet/models"
)

// Deterministic addresses and fingerprints for tests.
var TestWallets = struct {
	Address1     models.Address
	Address2     models.Address
	Fingerprint1 string
	Fingerprint2 string
}{
	Address1:     "0x52908400098527886e0f7030069857d2e4169ee7",
	Address2:     "0xde709f2102306220921060314715629080e2fb77",
	Fingerprint1: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	Fingerprint2: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
}

// WalletBuilder provides a fluent interface for building test wallet records.
type WalletBuilder struct {
	record *models.WalletRecord
}

// NewWalletBuilder creates an unverified record for TestWallets.Address1.
func NewWalletBuilder() *WalletBuilder {
	now := time.Now().UTC()
	return &WalletBuilder{
		record: &models.WalletRecord{
			Address:     TestWallets.Address1,
			Fingerprint: TestWallets.Fingerprint1,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

func (b *WalletBuilder) WithAddress(addr models.Address) *WalletBuilder {
	b.record.Address = addr
	return b
}

func (b *WalletBuilder) WithFingerprint(f string) *WalletBuilder {
	b.record.Fingerprint = f
	return b
}

func (b *WalletBuilder) CreatedAt(t time.Time) *WalletBuilder {
	b.record.CreatedAt = t
	b.record.UpdatedAt = t
	return b
}

// Verified marks the record verified at t.
func (b *WalletBuilder) Verified(t time.Time) *WalletBuilder {
	b.record.Verified = true
	b.record.VerifiedAt = &t
	return b
}

func (b *WalletBuilder) Build() *models.WalletRecord {
	return b.record.Clone()
}
