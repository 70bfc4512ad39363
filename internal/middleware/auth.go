package middleware

import (
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"clip-worker/internal/logging"
	"clip-worker/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds configuration for the bearer token middleware
type AuthConfig struct {
	// TokenHash is the bcrypt hash of the accepted token. Empty disables
	// authentication.
	TokenHash string

	// ProtectedPrefixes lists path prefixes that require the token. Paths
	// outside them are served without a check.
	ProtectedPrefixes []string
}

// DefaultAuthConfig protects the pipeline and job history routes.
func DefaultAuthConfig(tokenHash string) AuthConfig {
	return AuthConfig{
		TokenHash:         tokenHash,
		ProtectedPrefixes: []string{"/clip", "/extract-audio", "/api/"},
	}
}

// tokenVerifier checks tokens against a bcrypt hash. Accepted tokens are
// remembered by digest so repeat callers skip the bcrypt comparison.
type tokenVerifier struct {
	hash []byte

	mu       sync.RWMutex
	accepted map[[sha256.Size]byte]struct{}
}

func newTokenVerifier(hash string) *tokenVerifier {
	return &tokenVerifier{
		hash:     []byte(hash),
		accepted: make(map[[sha256.Size]byte]struct{}),
	}
}

func (v *tokenVerifier) verify(token string) bool {
	digest := sha256.Sum256([]byte(token))

	v.mu.RLock()
	_, ok := v.accepted[digest]
	v.mu.RUnlock()
	if ok {
		return true
	}

	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(token)); err != nil {
		return false
	}

	v.mu.Lock()
	v.accepted[digest] = struct{}{}
	v.mu.Unlock()
	return true
}

// Auth returns a middleware requiring "Authorization: Bearer <token>" on
// protected paths.
func Auth(config AuthConfig) func(http.Handler) http.Handler {
	if config.TokenHash == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	verifier := newTokenVerifier(config.TokenHash)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isProtected(r.URL.Path, config.ProtectedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
				writeUnauthorized(w, "missing bearer token")
				return
			}
			if !verifier.verify(token) {
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				logging.Warn("rejected invalid API token from %s for %s", sanitizeLogField(getClientIP(r)), sanitizeLogField(r.URL.Path))
				writeUnauthorized(w, "invalid bearer token")
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		base := strings.TrimSuffix(p, "/")
		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="clip-worker"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode auth error: %v", err)
	}
}
