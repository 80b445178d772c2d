package handler

import (
	"time"

	"walletverify/internal/wallet/models"
)

type WalletResponse struct {
	Address           string     `json:"address"`
	Fingerprint       string     `json:"fingerprint"`
	FingerprintFormat string     `json:"fingerprint_format"`
	Verified          bool       `json:"verified"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	VerifiedAt        *time.Time `json:"verified_at"`
}

type RegisterResponse struct {
	Message string          `json:"message"`
	Wallet  *WalletResponse `json:"wallet"`
}

// VerifyResponse carries the wallet on a match and both fingerprints on a mismatch.
type VerifyResponse struct {
	Matched           bool            `json:"matched"`
	Message           string          `json:"message"`
	Wallet            *WalletResponse `json:"wallet,omitempty"`
	LocalFingerprint  string          `json:"local_fingerprint,omitempty"`
	RemoteFingerprint string          `json:"remote_fingerprint,omitempty"`
}

type WalletListResponse struct {
	Count   int               `json:"count"`
	Wallets []*WalletResponse `json:"wallets"`
}

type StatsResponse struct {
	TotalWallets    int       `json:"total_wallets"`
	VerifiedWallets int       `json:"verified_wallets"`
	Timestamp       time.Time `json:"timestamp"`
}

func toWalletResponse(w *models.WalletRecord) *WalletResponse {
	if w == nil {
		return nil
	}
	resp := &WalletResponse{
		Address:           w.Address.String(),
		Fingerprint:       w.Fingerprint,
		FingerprintFormat: string(models.ClassifyFingerprint(w.Fingerprint)),
		Verified:          w.Verified,
		CreatedAt:         w.CreatedAt.UTC(),
		UpdatedAt:         w.UpdatedAt.UTC(),
	}
	if w.VerifiedAt != nil {
		t := w.VerifiedAt.UTC()
		resp.VerifiedAt = &t
	}
	return resp
}

func toWalletListResponse(records []*models.WalletRecord) *WalletListResponse {
	wallets := make([]*WalletResponse, 0, len(records))
	for _, r := range records {
		wallets = append(wallets, toWalletResponse(r))
	}
	return &WalletListResponse{Count: len(wallets), Wallets: wallets}
}
