// Package auth implements the stateless token lifecycle: issuance,
// verification and refresh of signed HS256 tokens. No session state is kept
// server-side, which also means an issued token cannot be revoked before its
// natural expiry.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	defaultIssuer     = "books-shop"
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the payload baked into every token. Immutable once issued.
type Claims struct {
	UID       int64  `json:"uid"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Service mints and validates self-contained signed tokens. The signing
// secret is injected at construction so tests can run with isolated secrets.
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a token service signing with the given secret.
func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	s := &Service{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess mints a short-lived access token for the subject.
func (s *Service) IssueAccess(uid int64) (string, time.Time, error) {
	return s.issue(uid, TokenTypeAccess, s.accessTTL)
}

// IssueRefresh mints a longer-lived refresh token for the subject.
func (s *Service) IssueRefresh(uid int64) (string, time.Time, error) {
	return s.issue(uid, TokenTypeRefresh, s.refreshTTL)
}

func (s *Service) issue(uid int64, kind string, ttl time.Duration) (string, time.Time, error) {
	if uid <= 0 {
		return "", time.Time{}, errors.New("auth: subject id is required")
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UID:       uid,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(uid, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature and expiry and returns the decoded payload
// unchanged. It distinguishes expiry from every other validation failure so
// the boundary can report the two conditions separately.
func (s *Service) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UID <= 0 || claims.TokenType == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// presented refresh token is not rotated: it stays valid until its own
// expiry, so a leaked refresh token survives use. Known trade-off of the
// stateless design.
func (s *Service) Refresh(refreshToken string) (string, time.Time, error) {
	claims, err := s.Verify(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", time.Time{}, ErrWrongTokenType
	}
	return s.IssueAccess(claims.UID)
}
