package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissing is returned for an empty token.
	ErrMissing = errors.New("token missing")
	// ErrMalformed is returned when the token cannot be parsed.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired is returned when the token's exp is in the past.
	ErrExpired = errors.New("token expired")
	// ErrSignature is returned when verification is configured and fails.
	ErrSignature = errors.New("token signature invalid")
)

// SigningMethod selects the verification algorithm when a key is configured.
type SigningMethod string

const (
	// MethodNone skips signature verification.
	MethodNone SigningMethod = ""
	// MethodHS256 verifies with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 verifies with an Ed25519 public key (raw or PEM).
	MethodEd25519 SigningMethod = "ed25519"
)

// Config selects how bearer signatures are checked. With [MethodNone] the
// signature is not verified and only the expiry is enforced.
type Config struct {
	SigningMethod SigningMethod
	VerifyKey     []byte
	Leeway        time.Duration
}

// Claims is the subset of backend claims the client reads.
type Claims struct {
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspector parses bearer tokens and rejects expired ones.
type Inspector struct {
	config    Config
	verifyKey interface{}
}

// NewInspector validates cfg and returns an [Inspector].
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	in := &Inspector{config: cfg}
	switch cfg.SigningMethod {
	case MethodNone:
	case MethodHS256:
		if len(cfg.VerifyKey) == 0 {
			return nil, errors.New("hs256 requires verify key")
		}
		in.verifyKey = cfg.VerifyKey
	case MethodEd25519:
		key, err := parseEdPublicKey(cfg.VerifyKey)
		if err != nil {
			return nil, err
		}
		in.verifyKey = key
	default:
		return nil, errors.New("unsupported signing method")
	}
	return in, nil
}

// Inspect parses raw and checks its expiry against now.
func (i *Inspector) Inspect(raw string, now time.Time) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissing
	}

	claims := &Claims{}
	if i.verifyKey == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{i.method().Alg()}),
			jwt.WithTimeFunc(func() time.Time { return now }),
			jwt.WithLeeway(i.config.Leeway),
		)
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return i.verifyKey, nil
		})
		switch {
		case err == nil:
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if Expired(claims, now, i.config.Leeway) {
		return nil, ErrExpired
	}
	return claims, nil
}

// Expired reports whether claims carry an exp at or before now minus leeway.
// Tokens without exp never expire locally.
func Expired(claims *Claims, now time.Time, leeway time.Duration) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Add(-leeway).Before(claims.ExpiresAt.Time)
}

// Bearer formats raw as an Authorization header value.
func Bearer(raw string) string {
	return "Bearer " + raw
}

func (i *Inspector) method() jwt.SigningMethod {
	switch i.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
