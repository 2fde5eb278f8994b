// Package middleware provides request body size limiting for the IPC
// server's JSON request bodies.
package middleware

import "net/http"

// DefaultMaxBodyBytes is the default max IPC request body size (64KB);
// every request body is a small JSON object (policy.evaluate triples,
// etc.), never a file payload.
const DefaultMaxBodyBytes = 64 * 1024

// MaxBodySize returns middleware that caps request body size at max
// bytes. GET/HEAD/DELETE requests carry no body and are unaffected.
func MaxBodySize(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}
