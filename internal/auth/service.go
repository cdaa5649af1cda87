package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pos/internal/common"
)

const (
	defaultAccessTTL   = 12 * time.Hour
	defaultMaxLifetime = 7 * 24 * time.Hour
)

const claimName = "name"

// Service issues and verifies operator bearer tokens.
type Service struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
	clockSkew time.Duration
}

// Config configures the auth service. MaxTokenLifetime caps the TTL of issued
// and accepted tokens and defaults to seven days.
type Config struct {
	Secret           string
	AccessTokenTTL   time.Duration
	Issuer           string
	Audience         string
	ClockSkew        time.Duration
	MaxTokenLifetime time.Duration
}

// Operator is the authenticated cashier carried by a token.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Token is a signed access token.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "pos-api"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "pos-terminal"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	maxLifetime := cfg.MaxTokenLifetime
	if maxLifetime <= 0 {
		maxLifetime = defaultMaxLifetime
	}
	if accessTTL > maxLifetime {
		return nil, fmt.Errorf("auth: access token ttl %s exceeds limit %s", accessTTL, maxLifetime)
	}
	return &Service{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:         issuer,
			Audience:       audience,
			ClockSkew:      clockSkew,
			Algorithm:      jwa.HS256,
			RequireSubject: true,
			MaxLifetime:    maxLifetime,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Issue signs an access token for the operator.
func (s *Service) Issue(op Operator) (Token, error) {
	op.ID = strings.TrimSpace(op.ID)
	if op.ID == "" {
		return Token{}, errors.New("auth: operator id is required")
	}
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(op.ID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt)
	if name := strings.TrimSpace(op.Name); name != "" {
		builder = builder.Claim(claimName, name)
	}
	token, err := builder.Build()
	if err != nil {
		return Token{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: string(signed), ExpiresAt: expiresAt}, nil
}

// Parse validates an access token and returns the operator it was issued to.
func (s *Service) Parse(token string) (Operator, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Operator{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Operator{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Operator{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Operator{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Operator{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	op := Operator{ID: parsed.Subject()}
	if raw, ok := parsed.Get(claimName); ok {
		if name, ok := raw.(string); ok {
			op.Name = name
		}
	}
	return op, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
