package infra

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTVerifier_Valid(t *testing.T) {
	v, err := NewJWTVerifier("s3cret")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := signToken(t, "s3cret", jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin-1",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	tok, err := v.VerifyIDToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tok.UID != "admin-1" {
		t.Errorf("expected uid admin-1, got %s", tok.UID)
	}
	if tok.Claims["role"] != "admin" {
		t.Errorf("expected role admin, got %v", tok.Claims["role"])
	}
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v, _ := NewJWTVerifier("s3cret")
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", signToken(t, "other", jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "admin-1", "exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", signToken(t, "s3cret", jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "admin-1", "exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing exp", signToken(t, "s3cret", jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "admin-1",
		})},
		{"missing subject", signToken(t, "s3cret", jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"hs512 not allowed", signToken(t, "s3cret", jwt.SigningMethodHS512, jwt.MapClaims{
			"sub": "admin-1", "exp": time.Now().Add(time.Hour).Unix(),
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.VerifyIDToken(context.Background(), tc.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	if _, err := NewJWTVerifier(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
