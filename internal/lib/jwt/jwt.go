// Package jwt implements generation and parsing of JWT tokens with the
// custom claims the control plane relies on: username, role and user uid.
package jwt

import (
	"time"
)

// Maker describes token generation and parsing.
type Maker interface {
	// GenerateToken issues a signed token for the given identity.
	GenerateToken(username, role, userUID string) (string, error)
	// ParseToken validates a token and returns its claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl implements Maker with an HMAC secret and a token lifetime.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker builds a MakerImpl from a secret key and a TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
