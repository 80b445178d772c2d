package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"walletverify/internal/wallet/models"
	"walletverify/pkg/platform/httputil"
	"walletverify/pkg/requestcontext"
)

// RegistrationService is the public wallet surface.
type RegistrationService interface {
	Register(ctx context.Context, address, fingerprint string) (*models.RegistrationResult, error)
	Get(ctx context.Context, address string) (*models.WalletRecord, error)
	List(ctx context.Context) ([]*models.WalletRecord, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Reconciler backs the admin verify endpoint.
type Reconciler interface {
	Reconcile(ctx context.Context, address string) (*models.ReconciliationResult, error)
}

type Handler struct {
	wallets    RegistrationService
	reconciler Reconciler
	logger     *slog.Logger
}

func New(wallets RegistrationService, reconciler Reconciler, logger *slog.Logger) *Handler {
	return &Handler{wallets: wallets, reconciler: reconciler, logger: logger}
}

// Register mounts the public wallet routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/wallet/register", h.HandleRegister)
	r.Get("/api/wallet/{address}", h.HandleGet)
}

// RegisterAdmin mounts the operator routes. The caller applies the admin gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/api/admin/verify", h.HandleVerify)
	r.Get("/api/admin/wallets", h.HandleList)
	r.Get("/api/admin/stats", h.HandleStats)
}

// HandleRegister upserts a claim: 201 when created, 200 when replaced.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.wallets.Register(ctx, req.Address, req.Fingerprint)
	if err != nil {
		h.logFailure(ctx, "wallet registration failed", err)
		httputil.WriteError(w, err)
		return
	}

	status, message := http.StatusOK, "wallet updated; verification reset"
	if result.Created {
		status, message = http.StatusCreated, "wallet registered"
	}
	httputil.WriteJSON(w, status, &RegisterResponse{Message: message, Wallet: toWalletResponse(result.Record)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	record, err := h.wallets.Get(ctx, chi.URLParam(r, "address"))
	if err != nil {
		h.logFailure(ctx, "wallet lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWalletResponse(record))
}

// HandleVerify reconciles one wallet. A mismatch is a 200 with matched=false.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.reconciler.Reconcile(ctx, req.Address)
	if err != nil {
		h.logFailure(ctx, "wallet verification failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "wallet verification completed",
		"address", req.Address,
		"matched", result.Matched,
		"admin", requestcontext.AdminSubject(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)

	if !result.Matched {
		httputil.WriteJSON(w, http.StatusOK, &VerifyResponse{
			Matched:           false,
			Message:           "fingerprint does not match the ledger",
			LocalFingerprint:  result.LocalFingerprint,
			RemoteFingerprint: result.RemoteFingerprint,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &VerifyResponse{
		Matched: true,
		Message: "wallet verified",
		Wallet:  toWalletResponse(result.Record),
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.wallets.List(ctx)
	if err != nil {
		h.logFailure(ctx, "wallet list failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWalletListResponse(records))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.wallets.Stats(ctx)
	if err != nil {
		h.logFailure(ctx, "wallet stats failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &StatsResponse{
		TotalWallets:    stats.TotalWallets,
		VerifiedWallets: stats.VerifiedWallets,
		Timestamp:       requestcontext.Now(ctx).UTC(),
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
