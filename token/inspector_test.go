package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: "1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestInspectUnverified(t *testing.T) {
	in, err := NewInspector(Config{})
	if err != nil {
		t.Fatalf("new inspector: %v", err)
	}
	now := time.Now()
	raw := sign(t, jwt.SigningMethodHS256, []byte("some-other-secret"), now.Add(time.Hour))

	claims, err := in.Inspect(raw, now)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.UserID != "1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestInspectExpired(t *testing.T) {
	in, _ := NewInspector(Config{})
	now := time.Now()
	raw := sign(t, jwt.SigningMethodHS256, []byte("k"), now.Add(-time.Minute))

	if _, err := in.Inspect(raw, now); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	lenient, _ := NewInspector(Config{Leeway: 2 * time.Minute})
	if _, err := lenient.Inspect(raw, now); err != nil {
		t.Fatalf("expected leeway to accept token, got %v", err)
	}
}

func TestInspectMalformedAndMissing(t *testing.T) {
	in, _ := NewInspector(Config{})
	if _, err := in.Inspect("   ", time.Now()); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if _, err := in.Inspect("not.a.jwt", time.Now()); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestInspectVerifiedHS256(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	in, err := NewInspector(Config{SigningMethod: MethodHS256, VerifyKey: secret})
	if err != nil {
		t.Fatalf("new inspector: %v", err)
	}
	now := time.Now()

	good := sign(t, jwt.SigningMethodHS256, secret, now.Add(time.Hour))
	if _, err := in.Inspect(good, now); err != nil {
		t.Fatalf("inspect good token: %v", err)
	}

	forged := sign(t, jwt.SigningMethodHS256, []byte("wrong-secret-wrong-secret-wrong!"), now.Add(time.Hour))
	if _, err := in.Inspect(forged, now); !errors.Is(err, ErrSignature) {
		t.Fatalf("expected ErrSignature, got %v", err)
	}

	expired := sign(t, jwt.SigningMethodHS256, secret, now.Add(-time.Hour))
	if _, err := in.Inspect(expired, now); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestInspectVerifiedEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	in, err := NewInspector(Config{SigningMethod: MethodEd25519, VerifyKey: pub})
	if err != nil {
		t.Fatalf("new inspector: %v", err)
	}
	now := time.Now()

	raw := sign(t, jwt.SigningMethodEdDSA, priv, now.Add(time.Hour))
	if _, err := in.Inspect(raw, now); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	hs := sign(t, jwt.SigningMethodHS256, []byte("k"), now.Add(time.Hour))
	if _, err := in.Inspect(hs, now); err == nil {
		t.Fatalf("expected algorithm mismatch to fail")
	}
}

func TestNewInspectorRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{SigningMethod: MethodHS256},
		{SigningMethod: MethodEd25519, VerifyKey: []byte("short")},
		{SigningMethod: "rs256", VerifyKey: []byte("x")},
		{Leeway: -time.Second},
	}
	for _, cfg := range cases {
		if _, err := NewInspector(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestExpiredWithoutExp(t *testing.T) {
	if Expired(&Claims{}, time.Now(), 0) {
		t.Fatalf("token without exp must not expire locally")
	}
	if Bearer("abc") != "Bearer abc" {
		t.Fatalf("unexpected bearer format")
	}
}
