package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	errNoExpiry     = errors.New("auth: token missing expiry")
	errTooLongLived = errors.New("auth: token lifetime exceeds limit")
)

// TokenValidator checks the claims of an operator token after its signature
// has been verified.
type TokenValidator struct {
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	Algorithm      jwa.SignatureAlgorithm
	RequireSubject bool
	// MaxLifetime caps exp - iat; zero disables the check.
	MaxLifetime time.Duration
}

// Validate returns nil when tok may be used at now.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	switch {
	case tok == nil:
		return errors.New("auth: token is nil")
	case algorithm == "":
		return errors.New("auth: token missing algorithm")
	case v.Algorithm != "" && algorithm != v.Algorithm:
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	case v.RequireSubject && strings.TrimSpace(tok.Subject()) == "":
		return errors.New("auth: token missing subject")
	case tok.Expiration().IsZero():
		return errNoExpiry
	}
	if v.MaxLifetime > 0 {
		issued := tok.IssuedAt()
		if issued.IsZero() || tok.Expiration().Sub(issued) > v.MaxLifetime {
			return errTooLongLived
		}
	}

	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(v.ClockSkew),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, opts...)
}
