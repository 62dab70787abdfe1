// Package auth mints and verifies the HS256 access tokens presented by
// customers, sellers and admins.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// clockSkew tolerates small drift between the minting and verifying hosts.
const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// AccessTokenPayload is what the caller knows when issuing a token.
type AccessTokenPayload struct {
	EntityID uuid.UUID
	Role     enums.ActorRole
	Name     string
	JTI      string
}

// AccessTokenClaims is the decoded token. Subject holds the entity id.
type AccessTokenClaims struct {
	Role enums.ActorRole `json:"role"`
	Name string          `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// EntityID parses the subject claim.
func (c *AccessTokenClaims) EntityID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Validate runs after the registered-claim checks during parsing.
func (c *AccessTokenClaims) Validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid actor role %q", c.Role)
	}
	if _, err := c.EntityID(); err != nil {
		return fmt.Errorf("invalid subject: %w", err)
	}
	return nil
}

func checkConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	}
	return nil
}

// MintAccessToken signs a token valid from now for cfg.ExpirationMinutes.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if payload.EntityID == uuid.Nil {
		return "", errors.New("entity id is required")
	}

	id := strings.TrimSpace(payload.JTI)
	if id == "" {
		id = uuid.NewString()
	}
	claims := &AccessTokenClaims{
		Role: payload.Role,
		Name: payload.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   payload.EntityID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then the role and
// subject through Validate.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
