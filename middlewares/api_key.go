// Package middlewares holds the HTTP middleware shared by the API routes.
package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/civiclens/permit-crawler/common/utils"
)

// ApiKey rejects requests whose X-API-KEY header does not match the
// configured backend key. An empty configured key disables the check, which
// is only acceptable for local development.
func ApiKey(key string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-KEY")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				utils.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
