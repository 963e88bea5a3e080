package core

import (
	"crypto/subtle"
	"net/http"

	"plotrisk/internal/types"
)

// Cron secret transports accepted by RequireCronSecret.
const (
	CronSecretHeader = "X-Cron-Secret"
	CronSecretQuery  = "key"
)

// RequireCronSecret guards job endpoints. The secret is read from the
// X-Cron-Secret header, falling back to the ?key= query parameter. An unset
// secret disables the check.
func (s *Server) RequireCronSecret(secret types.SecretString) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secret.IsSet() {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(CronSecretHeader)
			if provided == "" {
				provided = r.URL.Query().Get(CronSecretQuery)
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret.Unmask())) != 1 {
				s.Logger.WarnContext(r.Context(), "Rejected job request with invalid cron secret",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"secret_present", provided != "",
				)
				Error(w, r, types.NewAppError(types.ErrCodeAuthCronSecretInvalid, "invalid or missing cron secret", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
