// Package requesttime pins a single "now" per HTTP request so that every
// timestamp written while serving it (created_at, verified_at, token iat) agrees.
package requesttime

import (
	"net/http"
	"time"

	"walletverify/pkg/requestcontext"
)

// Middleware captures the current UTC time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
