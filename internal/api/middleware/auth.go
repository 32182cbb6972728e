package middleware

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/combattracker/internal/api/apierr"
)

// APIKey requires a bearer key matching the bcrypt hash. An empty hash
// disables the check.
func APIKey(hash string) func(http.Handler) http.Handler {
	if hash == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	v := &keyVerifier{hash: []byte(hash)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractToken(r)
			if key == "" || !v.verify(key) {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// keyVerifier remembers keys that already passed bcrypt so only the first
// request with a key pays for the comparison
type keyVerifier struct {
	hash     []byte
	accepted sync.Map
}

func (v *keyVerifier) verify(key string) bool {
	if _, ok := v.accepted.Load(key); ok {
		return true
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return false
	}
	v.accepted.Store(key, struct{}{})
	return true
}

// HashKey returns the bcrypt hash to configure for an API key
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// extractToken extracts the bearer key from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
