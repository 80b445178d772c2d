package service

import (
	"context"
	"errors"
	"log/slog"

	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/oracle"
	"walletverify/internal/wallet/tracer"
	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/platform/sentinel"
	"walletverify/pkg/requestcontext"
)

// Reconciliation outcomes, used as the result metric label and span attribute.
const (
	outcomeMatched           = "matched"
	outcomeMismatch          = "mismatch"
	outcomeNotAnchored       = "not_anchored"
	outcomeNotFound          = "not_found"
	outcomeInvalid           = "invalid_address"
	outcomeOracleUnavailable = "oracle_unavailable"
	outcomeStoreUnavailable  = "store_unavailable"
	outcomeStale             = "stale_claim"
)

// Reconciler compares a wallet's stored claim with the ledger and marks the
// wallet verified on an exact match.
type Reconciler struct {
	store     Store
	oracle    Oracle
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	publisher EventPublisher
}

func NewReconciler(store Store, oracle Oracle, opts ...Option) *Reconciler {
	c := newConfig(opts)
	return &Reconciler{
		store:     store,
		oracle:    oracle,
		logger:    c.logger,
		metrics:   c.metrics,
		tracer:    c.tracer,
		publisher: c.publisher,
	}
}

// Reconcile reads the local claim, then the ledger, and compares them byte for
// byte. Only a match mutates the store, and only if the claim is unchanged
// since it was read.
func (r *Reconciler) Reconcile(ctx context.Context, rawAddress string) (result *models.ReconciliationResult, err error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanReconcile)
	outcome := outcomeInvalid
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
		r.metrics.IncReconciliation(outcome)
		span.End(err)
	}()

	address, err := models.ParseAddress(rawAddress)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrAddress, address.String()))

	local, err := r.store.Get(ctx, address)
	if err != nil {
		outcome = storeOutcome(err)
		return nil, wrapStoreErr(err)
	}

	reading, err := r.oracle.ReadFingerprint(ctx, address)
	if err != nil {
		outcome = outcomeOracleUnavailable
		r.logger.WarnContext(ctx, "ledger read failed",
			"address", address.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, wrapOracleErr(err)
	}
	if reading.Cached && reading.Anchored && reading.Fingerprint == local.Fingerprint {
		// A cached match is confirmed against the ledger before anything is written.
		reading, err = r.oracle.ReadFingerprint(oracle.WithFreshRead(ctx), address)
		if err != nil {
			outcome = outcomeOracleUnavailable
			r.logger.WarnContext(ctx, "ledger confirm read failed",
				"address", address.String(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, wrapOracleErr(err)
		}
	}
	if !reading.Anchored {
		outcome = outcomeNotAnchored
		return nil, dErrors.New(dErrors.CodeNotAnchored, msgNotAnchored)
	}

	if local.Fingerprint != reading.Fingerprint {
		outcome = outcomeMismatch
		span.SetAttributes(tracer.Bool(tracer.AttrMatched, false))
		r.logger.InfoContext(ctx, "fingerprint mismatch",
			"address", address.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		publish(ctx, r.publisher, r.logger, span, newEvent(ctx, models.EventReconciliationMismatch, address,
			requestcontext.Now(ctx), models.ReconciliationMismatch{Address: address}))
		return &models.ReconciliationResult{
			Matched:           false,
			LocalFingerprint:  local.Fingerprint,
			RemoteFingerprint: reading.Fingerprint,
		}, nil
	}

	record, err := r.store.SetVerified(ctx, address, local.Fingerprint, requestcontext.Now(ctx))
	if err != nil {
		outcome = storeOutcome(err)
		if errors.Is(err, sentinel.ErrConflict) {
			r.logger.WarnContext(ctx, "claim replaced during reconciliation",
				"address", address.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, wrapStoreErr(err)
	}

	outcome = outcomeMatched
	span.SetAttributes(tracer.Bool(tracer.AttrMatched, true))
	r.logger.InfoContext(ctx, "wallet verified",
		"address", address.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	verifiedAt := *record.VerifiedAt
	publish(ctx, r.publisher, r.logger, span, newEvent(ctx, models.EventWalletVerified, address, verifiedAt,
		models.WalletVerified{Address: address, VerifiedAt: verifiedAt}))

	return &models.ReconciliationResult{
		Matched:           true,
		Record:            record,
		LocalFingerprint:  local.Fingerprint,
		RemoteFingerprint: reading.Fingerprint,
	}, nil
}

func storeOutcome(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return outcomeStale
	default:
		return outcomeStoreUnavailable
	}
}
