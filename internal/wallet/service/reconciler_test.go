package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/oracle"
	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/platform/sentinel"
	wallettest "walletverify/pkg/testutil"
)

func (s *ServiceSuite) TestReconcile() {
	addr := wallettest.TestWallets.Address1
	fp := wallettest.TestWallets.Fingerprint1

	s.Run("match marks the wallet verified", func() {
		local := s.record(fp)
		verified := s.record(fp)
		verified.Verified = true
		verified.VerifiedAt = &s.now

		gomock.InOrder(
			s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(local, nil),
			s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: fp, Anchored: true}, nil),
			s.mockStore.EXPECT().SetVerified(gomock.Any(), addr, fp, s.now).Return(verified, nil),
		)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e models.Event) error {
			s.Equal(models.EventWalletVerified, e.Type)
			s.Equal(models.WalletVerified{Address: addr, VerifiedAt: s.now}, e.Payload)
			return nil
		})

		result, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.Require().NoError(err)
		s.True(result.Matched)
		s.Equal(verified, result.Record)
		s.InDelta(1, testutil.ToFloat64(s.metrics.ReconciliationsTotal.WithLabelValues(outcomeMatched)), 0)
	})

	s.Run("cached match is confirmed by a fresh read", func() {
		verified := s.record(fp)
		verified.Verified = true
		verified.VerifiedAt = &s.now

		gomock.InOrder(
			s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record(fp), nil),
			s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: fp, Anchored: true, Cached: true}, nil),
			s.mockOracle.EXPECT().ReadFingerprint(gomock.Cond(func(ctx context.Context) bool { return oracle.IsFreshRead(ctx) }), addr).
				Return(oracle.Reading{Fingerprint: fp, Anchored: true}, nil),
			s.mockStore.EXPECT().SetVerified(gomock.Any(), addr, fp, s.now).Return(verified, nil),
		)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.Require().NoError(err)
		s.True(result.Matched)
	})

	s.Run("stale cached match is not verified", func() {
		gomock.InOrder(
			s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record(fp), nil),
			s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: fp, Anchored: true, Cached: true}, nil),
			s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: "QmReplaced", Anchored: true}, nil),
		)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.Require().NoError(err)
		s.False(result.Matched)
		s.Equal("QmReplaced", result.RemoteFingerprint)
	})

	s.Run("event carries the stored verification time", func() {
		created := s.now.Add(2 * time.Second)
		local := s.record(fp)
		local.CreatedAt = created
		verified := s.record(fp)
		verified.CreatedAt = created
		verified.Verified = true
		verified.VerifiedAt = &created

		gomock.InOrder(
			s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(local, nil),
			s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: fp, Anchored: true}, nil),
			s.mockStore.EXPECT().SetVerified(gomock.Any(), addr, fp, s.now).Return(verified, nil),
		)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e models.Event) error {
			s.Equal(models.WalletVerified{Address: addr, VerifiedAt: created}, e.Payload)
			s.True(created.Equal(e.OccurredAt))
			return nil
		})

		_, err := s.reconciler.Reconcile(s.ctx, addr.String())
		s.Require().NoError(err)
	})

	s.Run("mismatch makes no mutation", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record(fp), nil)
		s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: "QmOther", Anchored: true}, nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e models.Event) error {
			s.Equal(models.EventReconciliationMismatch, e.Type)
			return nil
		})

		result, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.Require().NoError(err)
		s.False(result.Matched)
		s.Nil(result.Record)
		s.Equal(fp, result.LocalFingerprint)
		s.Equal("QmOther", result.RemoteFingerprint)
	})

	s.Run("comparison is case-sensitive", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record("QmAbc"), nil)
		s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: "qmabc", Anchored: true}, nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.Require().NoError(err)
		s.False(result.Matched)
	})

	s.Run("not anchored", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record(fp), nil)
		s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Absent, nil)

		_, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.True(dErrors.HasCode(err, dErrors.CodeNotAnchored))
		s.InDelta(1, testutil.ToFloat64(s.metrics.ReconciliationsTotal.WithLabelValues(outcomeNotAnchored)), 0)
	})

	s.Run("unknown address never reaches the oracle", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(nil, fmt.Errorf("get wallet: %w", sentinel.ErrNotFound))

		_, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed address touches nothing", func() {
		_, err := s.reconciler.Reconcile(s.ctx, "0xNOTHEX")

		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.InDelta(1, testutil.ToFloat64(s.metrics.ReconciliationsTotal.WithLabelValues(outcomeInvalid)), 0)
	})

	s.Run("oracle failure is unavailable with no mutation", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record(fp), nil)
		s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{}, oracle.NewError(oracle.CategoryTimeout, "slow", nil))

		_, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.ErrorIs(err, oracle.ErrUnavailable)
		s.Equal("oracle unavailable: timeout", err.Error())
	})

	s.Run("claim replaced after the read is a stale claim", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record(fp), nil)
		s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: fp, Anchored: true}, nil)
		s.mockStore.EXPECT().SetVerified(gomock.Any(), addr, fp, s.now).Return(nil, sentinel.ErrConflict)

		_, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.InDelta(1, testutil.ToFloat64(s.metrics.ReconciliationsTotal.WithLabelValues(outcomeStale)), 0)
	})

	s.Run("record gone after the read is not found", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(s.record(fp), nil)
		s.mockOracle.EXPECT().ReadFingerprint(gomock.Any(), addr).Return(oracle.Reading{Fingerprint: fp, Anchored: true}, nil)
		s.mockStore.EXPECT().SetVerified(gomock.Any(), addr, fp, s.now).Return(nil, sentinel.ErrNotFound)

		_, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("store failure on read is unavailable", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), addr).Return(nil, errors.New("i/o timeout"))

		_, err := s.reconciler.Reconcile(s.ctx, addr.String())

		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(msgStoreUnavailable, err.Error())
	})
}
