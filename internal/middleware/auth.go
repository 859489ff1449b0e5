package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"photobox/internal/auth"
	"photobox/internal/store"
)

// TokenVerifier validates an access token and returns the user ID it was
// issued for.
type TokenVerifier interface {
	Verify(credential string) (int64, error)
}

// BearerToken extracts the credential from an Authorization header,
// returning "" when the header is missing or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth verifies the bearer access token, confirms the account
// still exists, and populates the request's AuthContext. Failures get a
// generic 401 with no detail about why the credential was rejected.
func RequireAuth(tokens TokenVerifier, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := BearerToken(r)
			if cred == "" {
				unauthorized(w)
				return
			}

			userID, err := tokens.Verify(cred)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(userID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{UserID: user.ID, Username: user.Username}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
