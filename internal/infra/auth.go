// README: Bearer token verification for the admin console (HS256 JWT).
package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityToken holds the verified token data used by downstream middleware.
type IdentityToken struct {
	UID    string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw bearer token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*IdentityToken, error)
}

type identityClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type jwtVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a TokenVerifier for HS256 tokens signed with secret.
func NewJWTVerifier(secret string) (TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty secret")
	}
	return &jwtVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (v *jwtVerifier) VerifyIDToken(_ context.Context, idToken string) (*IdentityToken, error) {
	if idToken == "" {
		return nil, errors.New("jwt: empty token")
	}
	claims := &identityClaims{}
	token, err := v.parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("jwt: invalid signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("jwt: invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("jwt: missing subject")
	}
	return &IdentityToken{
		UID: claims.Subject,
		Claims: map[string]interface{}{
			"role":  claims.Role,
			"email": claims.Email,
		},
	}, nil
}
