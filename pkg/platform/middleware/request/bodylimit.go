package request

import (
	"net/http"
)

// DefaultMaxBodyBytes caps JSON bodies on the public API. Claims are two short strings.
const DefaultMaxBodyBytes int64 = 64 << 10

// BodyLimit caps request bodies with http.MaxBytesReader. Reads past the
// limit fail, which DecodeJSON reports as a bad request.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
