// Package token issues and verifies signed, time-limited access tokens.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/bucketlist/internal/errs"
)

// DefaultTTL is the access token lifetime used when none is configured.
const DefaultTTL = 20000 * time.Second

// Service signs HS256 JWTs carrying the user id as subject.
type Service struct {
	signKey []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewService constructs a token service. A non-positive ttl falls back to DefaultTTL.
func NewService(signKey []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{signKey: signKey, ttl: ttl, now: time.Now}
}

// TTL returns the default lifetime of issued tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a token for userID valid for the default TTL.
func (s *Service) Issue(userID int64) (string, time.Time, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL creates a token for userID that expires after ttl.
func (s *Service) IssueWithTTL(userID int64, ttl time.Duration) (string, time.Time, error) {
	if len(s.signKey) == 0 {
		return "", time.Time{}, errors.New("token: empty signing key")
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	return signed, exp, err
}

// Verify checks signature and expiry and returns the user id.
// Every failure is reported as errs.ErrUnauthorized so callers cannot tell them apart.
func (s *Service) Verify(raw string) (int64, error) {
	if raw == "" {
		return 0, errs.ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, errs.ErrUnauthorized
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.ErrUnauthorized
	}
	return id, nil
}
