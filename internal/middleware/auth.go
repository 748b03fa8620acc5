package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/auth"
	"github.com/Mekka-mouse/Vaultsystem/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	UserContextKey contextKey = "user"
)

// publicPaths are served without a token even when auth is required.
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware guards dashboard routes with operator JWTs.
type AuthMiddleware struct {
	authService *auth.Service
	required    bool
}

// NewAuthMiddleware creates a new authentication middleware. With required
// false every request is let through, which is how the dashboard runs on a
// trusted network.
func NewAuthMiddleware(authService *auth.Service, required bool) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		required:    required,
	}
}

// Authenticate validates the bearer token and stores the operator claims in
// the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.required || publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization header required")
			return
		}
		token, err := m.authService.ExtractTokenFromHeader(authHeader)
		if err != nil {
			unauthorized(w, "Invalid authorization header")
			return
		}
		claims, err := m.authService.ValidateToken(token)
		if errors.Is(err, auth.ErrExpiredToken) {
			unauthorized(w, "Token expired")
			return
		}
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="vault-dashboard"`)
	http.Error(w, msg, http.StatusUnauthorized)
}

// RequirePermission lets the request through only if the operator's role
// allows action.
func (m *AuthMiddleware) RequirePermission(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !m.required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				unauthorized(w, "User context not found")
				return
			}
			if !claims.Role.HasPermission(action) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts operator claims from request context
func GetUserFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok
}

// RateLimitMiddleware caps requests per client over a sliding window.
type RateLimitMiddleware struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// RateLimit allows maxRequests per client within windowSeconds. A
// non-positive maxRequests disables the limit.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	window := time.Duration(windowSeconds) * time.Second
	return func(next http.Handler) http.Handler {
		if maxRequests <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if retry, ok := m.allow(clientIP(r), maxRequests, window); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow records a hit for client, or reports how many seconds until the
// oldest hit leaves the window.
func (m *RateLimitMiddleware) allow(client string, maxRequests int, window time.Duration) (int, bool) {
	now := m.now()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.hits[client][:0]
	for _, at := range m.hits[client] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) >= maxRequests {
		m.hits[client] = recent
		wait := recent[0].Add(window).Sub(now)
		return int((wait + time.Second - 1) / time.Second), false
	}
	m.hits[client] = append(recent, now)
	return 0, true
}

// clientIP prefers the first forwarded address, then the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
