package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/platform/httputil"
	"walletverify/pkg/requestcontext"
	"walletverify/pkg/validation"
)

// LoginService is the subset of Service the handler needs.
type LoginService interface {
	Login(ctx context.Context, username, password string) (*Session, error)
}

type Handler struct {
	service LoginService
	logger  *slog.Logger
}

func NewHandler(service LoginService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the unauthenticated admin routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/admin/login", h.HandleLogin)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin exchanges the static credential for a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger)
	if !ok {
		return
	}

	session, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "admin login rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &LoginResponse{
		Token:     session.Token,
		TokenType: session.TokenType,
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}
