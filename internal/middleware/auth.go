package middleware

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmfalke/stash/internal/store"
)

const pinHeader = "X-Access-PIN"

// RequirePIN guards the API with the optional access PIN. When no PIN is
// configured every request passes; when one is set, requests must carry
// the matching PIN in the X-Access-PIN header. Checks are rate-limited per
// client IP to slow down guessing.
func RequirePIN(settings *store.SettingsStore, limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hash, err := settings.Get(r.Context(), store.SettingAccessPINHash)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if hash == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(RealIP(r), 10, time.Minute) {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			pin := r.Header.Get(pinHeader)
			if pin == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
