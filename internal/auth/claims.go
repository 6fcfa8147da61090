package auth

import (
	"time"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// SessionClaims are the claims sealed into a session token.
type SessionClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Identity returns the identity the token was issued for.
func (c *SessionClaims) Identity() *domain.Identity {
	return &domain.Identity{UID: c.UID, Email: c.Email}
}
