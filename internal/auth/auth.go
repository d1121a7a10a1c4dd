// Package auth verifies bearer tokens issued by the external identity
// provider and exposes the caller to handlers through the request context.
//
// The service never issues tokens. It checks the HMAC signature, expiry,
// issuer and audience, and takes the user ID from the "sub" claim.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/httputil"
)

var (
	// ErrMissingToken is returned when the request carries no credentials.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken covers bad signatures, expired tokens and wrong audiences.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the token payload we rely on.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates tokens. It is safe for concurrent use.
type Verifier struct {
	secret     []byte
	issuer     string
	audience   string
	cookieName string
	parser     *jwt.Parser
}

// NewVerifier creates a verifier from the auth config.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		cookieName: cfg.CookieName,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (*domain.User, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &domain.User{ID: claims.Subject, Email: claims.Email}, nil
}

// RequireAuth is middleware that rejects unauthenticated requests with 401
// and stores the caller in the request context.
func (v *Verifier) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := v.Verify(v.tokenFromRequest(r))
		if err != nil {
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (v *Verifier) tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if v.cookieName != "" {
		if c, err := r.Cookie(v.cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

type userKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the authenticated caller, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(*domain.User)
	return u, ok && u != nil
}
