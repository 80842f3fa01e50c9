package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	maxTokenBytes = 8 << 10

	// ExpiryWarning is how close to expiry a token must be before responses
	// carry the X-Token-Expires-* headers.
	ExpiryWarning = time.Hour
)

type claimsKey struct{}

// ErrorResponse is the JSON body of every error the API returns.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the verified claims, or nil outside AuthMiddleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

// UserIDFromContext returns the caller's user id, or 0 when unauthenticated.
func UserIDFromContext(ctx context.Context) int64 {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return 0
}

// RolesFromContext returns the caller's roles.
func RolesFromContext(ctx context.Context) []string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Roles
	}
	return nil
}

// publicPaths skip token checks even when the middleware wraps them.
var publicPaths = map[string]bool{
	"/health":     true,
	"/auth/login": true,
	"/metrics":    true,
}

func writeError(w http.ResponseWriter, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

// authError is a rejected Authorization header.
type authError struct {
	code    string
	message string
}

// bearerToken extracts the compact JWT from the Authorization header and
// checks its outer shape before any signature work is done.
func bearerToken(r *http.Request) (string, *authError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", &authError{"MISSING_AUTH_HEADER", "Authorization header required"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", &authError{"INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>"}
	}
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return "", &authError{"MISSING_TOKEN", "Token is required"}
	case len(token) > maxTokenBytes:
		return "", &authError{"INVALID_TOKEN_FORMAT", "Token size exceeds maximum allowed"}
	case strings.Count(token, ".") != 2:
		return "", &authError{"INVALID_TOKEN_FORMAT", "Token is not a compact JWT"}
	}
	return token, nil
}

// tokenError maps jwt parse failures to a message and code.
func tokenError(err error) *authError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &authError{"TOKEN_EXPIRED", "Token has expired"}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &authError{"INVALID_SIGNATURE", "Invalid token signature"}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &authError{"MALFORMED_TOKEN", "Token is malformed"}
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return &authError{"INVALID_TOKEN_AUDIENCE", "Token was not issued for this service"}
	default:
		return &authError{"INVALID_TOKEN", "Invalid or expired token"}
	}
}

// authenticate verifies the request's bearer token and returns its claims.
func authenticate(jwtManager *JWTManager, r *http.Request) (*Claims, *authError) {
	raw, aerr := bearerToken(r)
	if aerr != nil {
		return nil, aerr
	}
	claims, err := jwtManager.ValidateToken(raw)
	if err != nil {
		return nil, tokenError(err)
	}
	if claims.UserID <= 0 {
		return nil, &authError{"INVALID_USER_ID", "Invalid user ID in token"}
	}
	if len(claims.Roles) == 0 {
		return nil, &authError{"NO_ROLES", "No roles assigned to user"}
	}
	return claims, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// verified claims on the request context.
func AuthMiddleware(jwtManager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			claims, aerr := authenticate(jwtManager, r)
			if aerr != nil {
				writeError(w, aerr.message, aerr.code, http.StatusUnauthorized)
				return
			}

			if claims.IsExpiringSoon(ExpiryWarning) {
				expiresAt := claims.ExpiresAt.Time
				w.Header().Set("X-Token-Expires-At", expiresAt.UTC().Format(time.RFC3339))
				w.Header().Set("X-Token-Expires-In", time.Until(expiresAt).Round(time.Second).String())
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// MustRole lets the request through when the caller holds any of roles.
// It must be mounted behind AuthMiddleware.
func MustRole(roles ...string) func(http.Handler) http.Handler {
	if len(roles) == 0 {
		panic("auth: MustRole needs at least one role")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, "Authentication required", "AUTHENTICATION_REQUIRED", http.StatusUnauthorized)
				return
			}
			if !claims.HasRole(roles...) {
				writeError(w, "Insufficient permissions", "INSUFFICIENT_PERMISSIONS", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
