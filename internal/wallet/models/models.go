package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/validation"
)

var addressPattern = regexp.MustCompile(`^0x[a-f0-9]{40}$`)

// Address is a canonical lower-case EVM address: "0x" followed by 40 hex digits.
// Construct it with ParseAddress so the invariant always holds.
type Address string

// ParseAddress lower-cases raw and checks the result, so "0X" prefixes and
// checksummed digits are both accepted. Surrounding whitespace is not
// trimmed; callers normalize request input first.
func ParseAddress(raw string) (Address, error) {
	lower := strings.ToLower(raw)
	if !addressPattern.MatchString(lower) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid wallet address")
	}
	return Address(lower), nil
}

func (a Address) String() string { return string(a) }

// ValidateFingerprint trims surrounding whitespace and rejects empty or oversized claims.
// The returned value is otherwise untouched: fingerprints are compared byte for byte.
func ValidateFingerprint(raw string) (string, error) {
	f := strings.TrimSpace(raw)
	if f == "" {
		return "", dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	if err := validation.CheckStringLength("fingerprint", f, validation.MaxFingerprintLength); err != nil {
		return "", err
	}
	return f, nil
}

// WalletRecord is the off-chain claim for one address.
type WalletRecord struct {
	Address     Address
	Fingerprint string
	Verified    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	VerifiedAt  *time.Time
}

// Clone returns a deep copy so callers never alias stored state.
func (w *WalletRecord) Clone() *WalletRecord {
	if w == nil {
		return nil
	}
	c := *w
	if w.VerifiedAt != nil {
		t := *w.VerifiedAt
		c.VerifiedAt = &t
	}
	return &c
}

// FingerprintFormat labels what a fingerprint looks like. It is informational:
// equality is always decided on the raw string.
type FingerprintFormat string

const (
	FormatCIDv0  FingerprintFormat = "cidv0"
	FormatCIDv1  FingerprintFormat = "cidv1"
	FormatOpaque FingerprintFormat = "opaque"
)

// ClassifyFingerprint reports whether f parses as a content identifier.
func ClassifyFingerprint(f string) FingerprintFormat {
	c, err := cid.Decode(f)
	if err != nil {
		return FormatOpaque
	}
	switch c.Version() {
	case 0:
		return FormatCIDv0
	case 1:
		return FormatCIDv1
	default:
		return FormatOpaque
	}
}

// RegistrationResult reports the stored record and whether the call created it.
type RegistrationResult struct {
	Record  *WalletRecord
	Created bool
}

// ReconciliationResult is the outcome of comparing a local claim with the ledger.
// On a mismatch Record is nil and both fingerprints are populated.
type ReconciliationResult struct {
	Matched           bool
	Record            *WalletRecord
	LocalFingerprint  string
	RemoteFingerprint string
}

// Stats summarizes the store for operators.
type Stats struct {
	TotalWallets    int
	VerifiedWallets int
}
