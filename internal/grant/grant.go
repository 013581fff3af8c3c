// Package grant verifies signed ops grants: EdDSA JWTs that authorize
// mutating gateway control-plane operations.
package grant

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

// Environment variables configuring ops grant verification.
const (
	EnvIssuer    = "FIGDOCK_OPS_GRANT_ISSUER"
	EnvAudience  = "FIGDOCK_OPS_GRANT_AUDIENCE"
	EnvPublicKey = "FIGDOCK_OPS_GRANT_PUBLIC_KEY"
)

// Scopes an ops grant may carry. ScopeAll covers every operation.
const (
	ScopeAll     = "ops:*"
	ScopeScale   = "ops:scale"
	ScopeRestart = "ops:restart"
	ScopeDrain   = "ops:drain"
)

// opsGrantEnv holds raw env values before post-parse validation.
type opsGrantEnv struct {
	Issuer    string `env:"FIGDOCK_OPS_GRANT_ISSUER"`
	Audience  string `env:"FIGDOCK_OPS_GRANT_AUDIENCE"`
	PublicKey string `env:"FIGDOCK_OPS_GRANT_PUBLIC_KEY"`
}

// Config defines how ops grants are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Enabled reports whether the config carries a verification key.
func (c Config) Enabled() bool {
	return len(c.Key) == ed25519.PublicKeySize
}

// Claims captures validated ops grant claims.
type Claims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string
	Scopes    []string
}

// Allows reports whether the grant covers the given scope.
func (c Claims) Allows(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope || s == ScopeAll {
			return true
		}
	}
	return false
}

// opsClaims is the internal claims type used for JWT parsing. Scope is a
// space-delimited list following the OAuth convention.
type opsClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// LoadConfigFromEnv reads ops grant verification configuration. When none of
// the variables are set it returns a disabled config; a partially set
// configuration is an error.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw opsGrantEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse ops grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" && audience == "" && publicKey == "" {
		return Config{}, nil
	}
	if issuer == "" {
		return Config{}, fmt.Errorf("%s is required", EnvIssuer)
	}
	if audience == "" {
		return Config{}, fmt.Errorf("%s is required", EnvAudience)
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("%s is required", EnvPublicKey)
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode ops grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("ops grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verify checks a grant token's signature and claims and confirms it covers
// the required scope.
func Verify(token string, requiredScope string, cfg Config) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || !cfg.Enabled() {
		return Claims{}, errors.New("ops grant verifier is not configured")
	}

	var parsed opsClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeOpsGrantInvalid,
			"ops grant issuer mismatch",
			map[string]string{"field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeOpsGrantInvalid,
			"ops grant audience mismatch",
			map[string]string{"field": "audience"},
		)
	}

	if parsed.ID == "" {
		return Claims{}, apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeOpsGrantExpired, "ops grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return Claims{}, apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant not active yet")
		}
	}

	claims := Claims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		Scopes:    strings.Fields(parsed.Scope),
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}

	if !claims.Allows(requiredScope) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeOpsGrantScope,
			"ops grant does not cover operation",
			map[string]string{"scope": requiredScope},
		)
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
