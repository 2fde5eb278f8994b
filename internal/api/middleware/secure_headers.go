package middleware

import "net/http"

// SecureHeaders sets the response headers relevant to a local-only,
// JSON-over-Unix-socket control plane. The browser-facing defenses the
// teacher's HTTP API carried (clickjacking, CSP, XSS filtering) don't
// apply here — nothing renders these responses in a browser — so only
// the headers that matter for a JSON API consumed by the CLI/TUI client
// survive: MIME-sniffing protection and an explicit content type so a
// misbehaving client can't be tricked into treating a response as
// something other than JSON.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}
