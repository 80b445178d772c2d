// Package oracle reads the authoritative fingerprint for a wallet from the ledger.
//
// The ledger is read-only. An address with no fingerprint yields
// Reading{Anchored: false} and a nil error; every failure to obtain an answer
// is an error matching ErrUnavailable.
package oracle

import (
	"context"

	"walletverify/internal/wallet/models"
)

// Reading is the ledger's answer for one address. Cached is set when the
// answer came from a cache rather than the ledger itself, so it may be up to
// one cache TTL old.
type Reading struct {
	Fingerprint string
	Anchored    bool
	Cached      bool
}

// Absent is the reading for an address with nothing anchored.
var Absent = Reading{}

// Reader is implemented by the ledger adapter and by every decorator around it.
type Reader interface {
	ReadFingerprint(ctx context.Context, address models.Address) (Reading, error)
}

type freshReadKey struct{}

// WithFreshRead marks ctx so caching decorators go straight to the ledger and
// refresh what they hold with the answer.
func WithFreshRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadKey{}, true)
}

// IsFreshRead reports whether ctx was marked by WithFreshRead.
func IsFreshRead(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshReadKey{}).(bool)
	return fresh
}
