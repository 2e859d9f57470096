package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned for anything that cannot be read as a JWT payload.
var ErrMalformedToken = errors.New("malformed access token")

// Identity is the user identity carried in the access token payload.
type Identity struct {
	Username  string `json:"username,omitempty"`  // Login name
	UserID    int64  `json:"user_id,omitempty"`   // Numeric user id
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	OrgName   string `json:"org_name,omitempty"` // Organisation the user belongs to
	OrgID     int64  `json:"org_id,omitempty"`
	OrgType   string `json:"org_type,omitempty"`
}

// Claims is the decoded access token. It is always derived from the token
// currently held and never persisted on its own.
type Claims struct {
	Identity
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// accessClaims is the JSON shape of the payload issued by the authentication service
type accessClaims struct {
	jwtlib.RegisteredClaims
	Identity
}

func (c *accessClaims) toClaims() *Claims {
	out := &Claims{Identity: c.Identity}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out
}

// Decoder turns a raw access token into Claims.
type Decoder interface {
	Decode(ctx context.Context, rawToken string) (*Claims, error)
}

// UnverifiedDecoder reads the payload without checking the signature.
type UnverifiedDecoder struct{}

var _ Decoder = UnverifiedDecoder{}

func (UnverifiedDecoder) Decode(_ context.Context, rawToken string) (*Claims, error) {
	return Decode(rawToken)
}

// Decode reads the identity claims from an access token without verifying it.
func Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	var c accessClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return c.toClaims(), nil
}
