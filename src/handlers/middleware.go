package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/navrlluis/crypto-tax/src/logger"
	"github.com/navrlluis/crypto-tax/src/utils"
)

// WebhookAuthMiddleware authenticates the single machine caller (the form
// automation) by a shared secret in the X-Webhook-Secret header. Both sides
// are hashed before comparing so the check is constant time regardless of
// secret length.
func WebhookAuthMiddleware(secret string) func(http.Handler) http.Handler {
	expected := sha256.Sum256([]byte(secret))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := sha256.Sum256([]byte(r.Header.Get("X-Webhook-Secret")))
			if subtle.ConstantTimeCompare(expected[:], provided[:]) != 1 {
				logger.L.Warn("Rejected request with invalid webhook secret",
					"method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
				utils.SendJSONError(w, "invalid webhook secret", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
