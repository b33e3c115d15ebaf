package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any access token that fails verification.
var ErrInvalidToken = errors.New("invalid access token")

// Claims are the access token claims the client relies on.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verifier checks access tokens issued by the auth server.
type Verifier struct {
	keyfunc jwt.Keyfunc
	algs    []string
}

// NewJWKSVerifier fetches and caches signing keys from the auth server's JWKS endpoint.
func NewJWKSVerifier(ctx context.Context, jwksURL string) (*Verifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}
	slog.Debug("JWT verifier initialized", "jwks_url", jwksURL)
	return &Verifier{keyfunc: jwks.Keyfunc, algs: []string{"RS256", "ES256"}}, nil
}

// NewVerifier uses a caller-supplied key lookup.
func NewVerifier(kf jwt.Keyfunc, algs ...string) *Verifier {
	if len(algs) == 0 {
		algs = []string{"RS256", "ES256"}
	}
	return &Verifier{keyfunc: kf, algs: algs}
}

// Verify parses tokenString and returns its claims when it is signed with an
// allowed algorithm, unexpired, and belongs to an authenticated user.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, jwt.WithValidMethods(v.algs))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Role != "authenticated" {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
