package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, issued, err := GenerateToken(secret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.ID != issued.ID {
		t.Errorf("expected jti %q, got %q", issued.ID, claims.ID)
	}
	if claims.Subject != "admin" {
		t.Errorf("expected subject 'admin', got %q", claims.Subject)
	}
}

func TestTokensHaveUniqueJTI(t *testing.T) {
	_, a, _ := GenerateToken("s")
	_, b, _ := GenerateToken("s")
	if a.ID == b.ID {
		t.Errorf("expected distinct JTIs, both were %q", a.ID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, _ := GenerateToken("secret1")

	if _, err := ValidateToken("secret2", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	secret := "secret"
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "old",
		Issuer:    issuer,
		Subject:   adminSubject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateToken(secret, token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateTokenWrongSubject(t *testing.T) {
	secret := "secret"
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "x",
		Issuer:    issuer,
		Subject:   "customer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))

	if _, err := ValidateToken(secret, token); err == nil {
		t.Error("expected error for non-admin subject")
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := "test"
	token, _, _ := GenerateToken(secret)
	claims, _ := ValidateToken(secret, token)

	diff := time.Now().Add(TokenExpiry).Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}
