package service

import (
	"context"
	"log/slog"

	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/tracer"
	"walletverify/pkg/requestcontext"
)

// RegistrationService accepts wallet claims and serves lookups.
type RegistrationService struct {
	store     Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	publisher EventPublisher
	cache     ReadingCache
}

func NewRegistrationService(store Store, opts ...Option) *RegistrationService {
	c := newConfig(opts)
	return &RegistrationService{
		store:     store,
		logger:    c.logger,
		metrics:   c.metrics,
		tracer:    c.tracer,
		publisher: c.publisher,
		cache:     c.cache,
	}
}

// Register upserts the claim for address. Every write resets trust, including
// a write of the fingerprint already stored.
func (s *RegistrationService) Register(ctx context.Context, rawAddress, rawFingerprint string) (result *models.RegistrationResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRegister)
	defer func() { span.End(err) }()

	address, err := models.ParseAddress(rawAddress)
	if err != nil {
		return nil, err
	}
	fingerprint, err := models.ValidateFingerprint(rawFingerprint)
	if err != nil {
		return nil, err
	}
	format := models.ClassifyFingerprint(fingerprint)
	span.SetAttributes(
		tracer.String(tracer.AttrAddress, address.String()),
		tracer.String(tracer.AttrFingerprintKind, string(format)),
	)

	now := requestcontext.Now(ctx)
	record, created, err := s.store.Upsert(ctx, address, fingerprint, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "wallet upsert failed",
			"address", address.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, wrapStoreErr(err)
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCreated, created))
	s.invalidateReading(ctx, address)

	s.metrics.IncRegistration(created, string(format))
	s.logger.InfoContext(ctx, "wallet registered",
		"address", address.String(),
		"created", created,
		"fingerprint_format", string(format),
		"request_id", requestcontext.RequestID(ctx),
	)
	publish(ctx, s.publisher, s.logger, span, newEvent(ctx, models.EventWalletRegistered, address, now, models.WalletRegistered{
		Address:           address,
		FingerprintFormat: format,
		Created:           created,
	}))

	return &models.RegistrationResult{Record: record, Created: created}, nil
}

func (s *RegistrationService) invalidateReading(ctx context.Context, address models.Address) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, address); err != nil {
		s.logger.WarnContext(ctx, "ledger reading cache invalidate failed",
			"address", address.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// Get returns the stored record for address.
func (s *RegistrationService) Get(ctx context.Context, rawAddress string) (*models.WalletRecord, error) {
	address, err := models.ParseAddress(rawAddress)
	if err != nil {
		return nil, err
	}
	record, err := s.store.Get(ctx, address)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return record, nil
}

// List returns every record, newest first.
func (s *RegistrationService) List(ctx context.Context) ([]*models.WalletRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return records, nil
}

func (s *RegistrationService) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.Stats{}, wrapStoreErr(err)
	}
	return stats, nil
}
