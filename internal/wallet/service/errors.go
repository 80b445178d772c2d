package service

import (
	"errors"

	"walletverify/internal/wallet/oracle"
	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/platform/sentinel"
)

const (
	msgRecordNotFound    = "wallet not found"
	msgStoreUnavailable  = "wallet store unavailable"
	msgOracleUnavailable = "oracle unavailable"
	msgNotAnchored       = "no fingerprint anchored on the ledger for this address"
	msgStaleClaim        = "wallet claim changed during reconciliation"
)

// wrapStoreErr translates store sentinels to domain errors. It runs once, at
// the service boundary.
func wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msgRecordNotFound)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msgStaleClaim)
	default:
		return &dErrors.Error{Code: dErrors.CodeUnavailable, Message: msgStoreUnavailable, Err: err}
	}
}

func wrapOracleErr(err error) error {
	return &dErrors.Error{
		Code:    dErrors.CodeUnavailable,
		Message: msgOracleUnavailable + ": " + string(oracle.CategoryOf(err)),
		Err:     err,
	}
}
