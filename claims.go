package registration

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the session claims carried by the cookie
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the session token payload, UID duplicates the subject
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

func (c *JWTClaims) Subject() string { return c.RegisteredClaims.Subject }
func (c *JWTClaims) Role() string    { return c.UserRole }

func (c *JWTClaims) HasRole(role string) bool { return role != "" && c.UserRole == role }

// UserID falls back to the subject for tokens without a uid claim
func (c *JWTClaims) UserID() string {
	if c.UID == "" {
		return c.RegisteredClaims.Subject
	}
	return c.UID
}

func (c *JWTClaims) Expires() time.Time  { return numericTime(c.ExpiresAt) }
func (c *JWTClaims) IssuedAt() time.Time { return numericTime(c.RegisteredClaims.IssuedAt) }

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
