package admin

import (
	"log/slog"
	"net/http"

	"walletverify/pkg/platform/httputil"
	"walletverify/pkg/requestcontext"
)

// HeaderStaticToken carries the break-glass token.
const HeaderStaticToken = "X-Admin-Token"

// RequireAdmin rejects requests the authorizer does not accept. The
// Authorization header wins over X-Admin-Token when both are sent. The
// authenticated subject is stored with requestcontext.WithAdminSubject.
func RequireAdmin(authorizer Authorizer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			credential := r.Header.Get("Authorization")
			if credential == "" {
				credential = r.Header.Get(HeaderStaticToken)
			}

			principal, err := authorizer.Authorize(ctx, credential)
			if err != nil {
				logger.WarnContext(ctx, "admin authorization failed",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="walletverify-admin"`)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithAdminSubject(ctx, principal.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
