// Package service contains application services for authentication, authorization and
// the bucketlist/item lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgcrypto "github.com/and161185/bucketlist/internal/crypto"
	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/limiter"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// TokenService issues and verifies access tokens.
type TokenService interface {
	Issue(userID int64) (string, time.Time, error)
	Verify(raw string) (int64, error)
}

// AuthService defines registration, login and token authentication.
type AuthService interface {
	// Register creates a new user and returns a freshly issued token.
	Register(ctx context.Context, username, password string) (model.User, model.Tokens, error)
	// Login applies rate limiting and authenticates the user by password.
	Login(ctx context.Context, username, password, ip string) (model.User, model.Tokens, error)
	// Authenticate resolves a bearer token to a live user.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	tokens TokenService
	lim    limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens TokenService, lim limiter.Limiter) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, tokens: tokens, lim: lim}
}

// Register validates credentials, stores the user with a hashed password and issues a token.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (model.User, model.Tokens, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, model.Tokens{}, fmt.Errorf("%w: username and password are required", errs.ErrValidation)
	}
	if len([]rune(username)) > maxNameLen {
		return model.User{}, model.Tokens{}, fmt.Errorf("%w: username longer than %d characters", errs.ErrValidation, maxNameLen)
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return model.User{}, model.Tokens{}, err
	}
	u := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return model.User{}, model.Tokens{}, err
	}
	tok, err := s.issue(u.ID)
	if err != nil {
		return model.User{}, model.Tokens{}, err
	}
	return *u, tok, nil
}

// Login authenticates with rate limiting by (username, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, ip string) (model.User, model.Tokens, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, model.Tokens{}, fmt.Errorf("%w: username and password are required", errs.ErrValidation)
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.User{}, model.Tokens{}, err
	}
	if !allowed {
		return model.User{}, model.Tokens{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.User{}, model.Tokens{}, err
	}
	ok := false
	if u != nil {
		ok = pkgcrypto.VerifyPassword(password, u.PasswordHash)
	} else {
		// same cost as a real check so unknown usernames are not distinguishable by timing
		pkgcrypto.VerifyPassword(password, dummyHash())
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.User{}, model.Tokens{}, errs.ErrRateLimited
		}
		return model.User{}, model.Tokens{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, username, ipHash)

	tok, err := s.issue(u.ID)
	if err != nil {
		return model.User{}, model.Tokens{}, err
	}
	return *u, tok, nil
}

// Authenticate verifies the token and loads its user. A token whose user no longer
// exists is rejected like any other invalid token.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (*model.User, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, errs.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthServiceImpl) issue(userID int64) (model.Tokens, error) {
	access, exp, err := s.tokens.Issue(userID)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, nil
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := pkgcrypto.HashPassword("dummy-password")
	return h
})
