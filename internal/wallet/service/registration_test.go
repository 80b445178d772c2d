package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/service/mocks"
	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/platform/sentinel"
	wallettest "walletverify/pkg/testutil"
)

func (s *ServiceSuite) TestRegister() {
	addr := wallettest.TestWallets.Address1

	s.Run("creates a new claim", func() {
		stored := s.record(wallettest.TestWallets.Fingerprint1)
		s.mockStore.EXPECT().Upsert(gomock.Any(), addr, wallettest.TestWallets.Fingerprint1, s.now).Return(stored, true, nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e models.Event) error {
			s.Equal(models.EventWalletRegistered, e.Type)
			s.Equal(addr, e.Address)
			s.Equal("req-1", e.RequestID)
			s.NotEmpty(e.ID)
			payload, ok := e.Payload.(models.WalletRegistered)
			s.Require().True(ok)
			s.True(payload.Created)
			s.Equal(models.FormatCIDv0, payload.FingerprintFormat)
			return nil
		})

		result, err := s.registration.Register(s.ctx, addr.String(), wallettest.TestWallets.Fingerprint1)

		s.Require().NoError(err)
		s.True(result.Created)
		s.Equal(stored, result.Record)
		s.InDelta(1, testutil.ToFloat64(s.metrics.RegistrationsTotal.WithLabelValues("created", "cidv0")), 0)
	})

	s.Run("normalizes the address and trims the fingerprint", func() {
		upper := "0x52908400098527886E0F7030069857D2E4169EE7"
		s.mockStore.EXPECT().Upsert(gomock.Any(), addr, "opaque-claim", s.now).Return(s.record("opaque-claim"), false, nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.registration.Register(s.ctx, upper, "  opaque-claim\n")

		s.Require().NoError(err)
		s.False(result.Created)
		s.InDelta(1, testutil.ToFloat64(s.metrics.RegistrationsTotal.WithLabelValues("updated", "opaque")), 0)
	})

	s.Run("rejects a malformed address before touching the store", func() {
		_, err := s.registration.Register(s.ctx, "0xNOTHEX", wallettest.TestWallets.Fingerprint1)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal("invalid wallet address", err.Error())
	})

	s.Run("rejects a blank fingerprint", func() {
		_, err := s.registration.Register(s.ctx, addr.String(), "   ")

		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("address is validated before the fingerprint", func() {
		_, err := s.registration.Register(s.ctx, "nope", "")

		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("store failure is unavailable and emits nothing", func() {
		s.mockStore.EXPECT().Upsert(gomock.Any(), addr, "Qm1", s.now).Return(nil, false, errors.New("dial tcp: connection refused"))

		_, err := s.registration.Register(s.ctx, addr.String(), "Qm1")

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(msgStoreUnavailable, err.Error())
	})

	s.Run("publisher failure does not fail registration", func() {
		s.mockStore.EXPECT().Upsert(gomock.Any(), addr, "Qm1", s.now).Return(s.record("Qm1"), true, nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		result, err := s.registration.Register(s.ctx, addr.String(), "Qm1")

		s.Require().NoError(err)
		s.NotNil(result.Record)
		s.Contains(s.logs.String(), "failed to publish wallet event")
	})
}

func (s *ServiceSuite) TestGet() {
	addr := wallettest.TestWallets.Address2

	s.Run("returns the stored record", func() {
		stored := s.record("Qm2")
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(stored, nil)

		got, err := s.registration.Get(s.ctx, addr.String())

		s.Require().NoError(err)
		s.Equal(stored, got)
	})

	s.Run("missing record is not found", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(nil, sentinel.ErrNotFound)

		_, err := s.registration.Get(s.ctx, addr.String())

		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed address is rejected", func() {
		_, err := s.registration.Get(s.ctx, "0x123")

		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestListAndStats() {
	records := []*models.WalletRecord{s.record("a"), s.record("b")}
	s.mockStore.EXPECT().ListAll(gomock.Any()).Return(records, nil)
	s.mockStore.EXPECT().Stats(gomock.Any()).Return(models.Stats{TotalWallets: 2, VerifiedWallets: 1}, nil)

	got, err := s.registration.List(s.ctx)
	s.Require().NoError(err)
	s.Len(got, 2)

	stats, err := s.registration.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.VerifiedWallets)

	s.mockStore.EXPECT().Stats(gomock.Any()).Return(models.Stats{}, errors.New("timeout"))
	_, err = s.registration.Stats(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceSuite) TestRegisterDropsCachedLedgerReading() {
	addr := wallettest.TestWallets.Address1
	cache := mocks.NewMockReadingCache(s.ctrl)
	registration := NewRegistrationService(s.mockStore,
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
		WithReadingCache(cache),
	)

	s.Run("after a successful upsert", func() {
		gomock.InOrder(
			s.mockStore.EXPECT().Upsert(gomock.Any(), addr, "QmNew", s.now).Return(s.record("QmNew"), false, nil),
			cache.EXPECT().Invalidate(gomock.Any(), addr).Return(nil),
		)

		_, err := registration.Register(s.ctx, addr.String(), "QmNew")
		s.Require().NoError(err)
	})

	s.Run("cache failure is logged only", func() {
		s.mockStore.EXPECT().Upsert(gomock.Any(), addr, "QmNew", s.now).Return(s.record("QmNew"), false, nil)
		cache.EXPECT().Invalidate(gomock.Any(), addr).Return(errors.New("redis down"))

		result, err := registration.Register(s.ctx, addr.String(), "QmNew")

		s.Require().NoError(err)
		s.NotNil(result.Record)
		s.Contains(s.logs.String(), "ledger reading cache invalidate failed")
	})

	s.Run("not on a failed upsert", func() {
		s.mockStore.EXPECT().Upsert(gomock.Any(), addr, "QmNew", s.now).Return(nil, false, errors.New("i/o timeout"))

		_, err := registration.Register(s.ctx, addr.String(), "QmNew")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
