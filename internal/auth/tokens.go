package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/cinewatch/cinewatch/internal/domain"
)

const (
	tokenIssuer   = "cinewatch"
	tokenAudience = "cinewatch-session"
)

// TokenService seals and opens PASETO v4.local session tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	duration time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, duration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{key: symmetric, duration: duration, now: time.Now}, nil
}

// Issue creates a session token for identity.
func (s *TokenService) Issue(identity *domain.Identity) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(identity.UID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.duration))

	jti, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(jti.String())

	//nolint:errcheck // Set only fails for values that cannot be marshaled
	_ = token.Set("uid", identity.UID)
	//nolint:errcheck // Set only fails for values that cannot be marshaled
	_ = token.Set("email", identity.Email)

	return token.V4Encrypt(s.key, nil), nil
}

// Verify opens a session token and checks issuer, audience and validity window.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims SessionClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.UID == "" {
		return nil, fmt.Errorf("invalid token: missing uid claim")
	}

	return &claims, nil
}

// Duration returns the configured session lifetime.
func (s *TokenService) Duration() time.Duration {
	return s.duration
}
