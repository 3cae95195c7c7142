package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	require.NoError(t, VerifyPassword(hash, "correct horse battery"))
	require.Error(t, VerifyPassword(hash, "wrong horse battery"))
}

func TestBasicAuth(t *testing.T) {
	hash := testHash(t, "correct horse battery")
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := BasicAuth("mailer", hash)(ok)

	tests := []struct {
		name     string
		user     string
		password string
		noAuth   bool
		want     int
	}{
		{name: "valid", user: "mailer", password: "correct horse battery", want: http.StatusNoContent},
		{name: "wrong password", user: "mailer", password: "nope", want: http.StatusUnauthorized},
		{name: "wrong user", user: "someone", password: "correct horse battery", want: http.StatusUnauthorized},
		{name: "missing header", noAuth: true, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/calendar/invites/incoming", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.user, tt.password)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestBasicAuth_DisabledWithoutUser(t *testing.T) {
	handler := BasicAuth("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
