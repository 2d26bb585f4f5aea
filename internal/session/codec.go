package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pf-nexus/papermark/internal/domain"
)

// Token audiences. A token minted for one audience never decodes for another.
const (
	AudienceSession = "session"
	AudienceHandoff = "handoff"
)

// Claims is the payload of both local session and handoff tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Name   string    `json:"name,omitempty"`
}

// NewSessionClaims builds session claims for user.
func NewSessionClaims(user *domain.User) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID.String(),
			Audience: jwt.ClaimStrings{AudienceSession},
		},
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}
}

// NewHandoffClaims builds handoff claims. They carry only the user id.
func NewHandoffClaims(userID uuid.UUID) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			Audience: jwt.ClaimStrings{AudienceHandoff},
		},
		UserID: userID,
	}
}

// ExpiresAtTime returns the expiry as a time, zero when unset.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Codec signs and verifies HS256 tokens with a single shared secret.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec creates a Codec.
func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Encode signs claims valid for maxAge from now. Issuer, issued-at, expiry and
// token id are filled in; the audience must already be set.
func (c *Codec) Encode(claims Claims, maxAge time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("session.Encode: empty signing secret")
	}
	if maxAge <= 0 {
		return "", fmt.Errorf("session.Encode: non-positive max age %s", maxAge)
	}
	if len(claims.Audience) == 0 {
		return "", errors.New("session.Encode: audience is required")
	}

	now := c.now()
	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(maxAge))
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("session.Encode: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, issuer, expiry and audience. Any failure is
// reported as domain.ErrInvalidToken.
func (c *Codec) Decode(tokenString, audience string) (*Claims, error) {
	if tokenString == "" {
		return nil, domain.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
