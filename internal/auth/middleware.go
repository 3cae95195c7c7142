package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/frankbot/frank/internal/apperrors"
	"github.com/rs/zerolog/log"
)

const realm = `Basic realm="frank intake", charset="UTF-8"`

// BasicAuth protects the intake webhook with a single user and a bcrypt
// password hash. An empty user disables the check.
func BasicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if user == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPassword, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", realm)
				apperrors.WriteUnauthorized(w, r, "Authentication required")
				return
			}

			userMatches := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) == 1
			if !userMatches || VerifyPassword(passwordHash, gotPassword) != nil {
				log.Warn().
					Str("user", gotUser).
					Str("remote_addr", r.RemoteAddr).
					Str("request_id", apperrors.GetRequestID(r.Context())).
					Msg("Intake authentication failed")
				w.Header().Set("WWW-Authenticate", realm)
				apperrors.WriteUnauthorized(w, r, "Invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
