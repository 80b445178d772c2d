// Package httptransport assembles the HTTP surface: the middleware stack, the
// public wallet routes and the admin routes behind the admin gate.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"walletverify/internal/admin"
	"walletverify/internal/platform/health"
	wallethandler "walletverify/internal/wallet/handler"
	"walletverify/pkg/platform/middleware/request"
	"walletverify/pkg/platform/middleware/requesttime"
)

// DefaultRequestTimeout bounds each request when Deps.RequestTimeout is zero.
const DefaultRequestTimeout = 30 * time.Second

// Deps are the handlers and middleware dependencies the router mounts.
// Metrics, Health, AdminLogin and MetricsHandler are optional.
type Deps struct {
	Logger         *slog.Logger
	Wallets        *wallethandler.Handler
	AdminLogin     *admin.Handler
	Authorizer     admin.Authorizer
	Health         *health.Handler
	Metrics        *request.Metrics
	MetricsHandler http.Handler
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wires all endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = request.DefaultMaxBodyBytes
	}

	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	r.Use(request.LatencyMiddleware(d.Metrics, routePattern))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		r.Use(request.BodyLimit(maxBody))
		r.Use(request.ContentTypeJSON)

		d.Wallets.Register(r)
		if d.AdminLogin != nil {
			d.AdminLogin.Register(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(d.Authorizer, d.Logger))
			d.Wallets.RegisterAdmin(r)
		})
	})

	return r
}

// routePattern returns the matched chi pattern, e.g. /api/wallet/{address}.
// It is read after the handler runs, when routing has completed.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
