// Package services contains server-side business logic. This file implements
// AdminService, which signs the studio admin in through the identity provider
// and verifies session tokens for the access guard.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/inkstudio/internal/common"
	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/auth"
	"github.com/dmitrijs2005/inkstudio/internal/server/config"
	"github.com/dmitrijs2005/inkstudio/internal/server/identity"
)

// IdentityProvider is the part of identity.Client the admin flow needs.
type IdentityProvider interface {
	LookupAccount(ctx context.Context, idToken string) (*identity.Account, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.SignIn, error)
}

// Session is the outcome of a successful login.
type Session struct {
	Token  string
	Email  string
	UID    string
	MaxAge time.Duration
}

type AdminService struct {
	idp         IdentityProvider
	adminEmail  string
	clientEmail string
	logger      logging.Logger
	now         func() time.Time
}

// NewAdminService constructs an AdminService for the configured allow-list.
func NewAdminService(idp IdentityProvider, cfg *config.Config, logger logging.Logger) *AdminService {
	return &AdminService{
		idp:         idp,
		adminEmail:  cfg.AdminEmail,
		clientEmail: cfg.ClientEmail,
		logger:      logger.With("module", "admin"),
		now:         time.Now,
	}
}

// IsAuthorizedEmail reports whether email is one of the two dashboard
// addresses. Unset addresses never match.
func (s *AdminService) IsAuthorizedEmail(email string) bool {
	return sameEmail(email, s.adminEmail) || sameEmail(email, s.clientEmail)
}

// Login signs the admin in. Only the admin address may log in here; any
// other address is refused before the provider is contacted.
func (s *AdminService) Login(ctx context.Context, email, password string, remember bool) (*Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", common.ErrorValidation)
	}
	if !sameEmail(email, s.adminEmail) {
		s.logger.Warn(ctx, "login refused for non-admin address")
		return nil, common.ErrorUnauthorized
	}

	res, err := s.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Warn(ctx, "admin login rejected by identity provider")
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "admin login failed", "error", err)
		return nil, fmt.Errorf("sign in: %w", err)
	}

	maxAge := common.SessionMaxAge
	if remember {
		maxAge = common.SessionRememberMaxAge
	}

	s.logger.Info(ctx, "admin logged in", "token_fp", auth.Fingerprint(res.IDToken), "remember", remember)
	return &Session{
		Token:  res.IDToken,
		Email:  res.Email,
		UID:    res.LocalID,
		MaxAge: maxAge,
	}, nil
}

// Verify resolves token to an authorized account. Every failure, including
// an unreachable provider, is an error: callers must treat it as "not
// verified".
func (s *AdminService) Verify(ctx context.Context, token string) (*identity.Account, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}
	if claims, ok := auth.Peek(token); ok && claims.Expired(s.now()) {
		return nil, common.ErrTokenExpired
	}

	acc, err := s.idp.LookupAccount(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if acc.Disabled {
		return nil, fmt.Errorf("account %s disabled: %w", acc.LocalID, common.ErrorUnauthorized)
	}
	if !s.IsAuthorizedEmail(acc.Email) {
		return nil, fmt.Errorf("account %s not allowed: %w", acc.LocalID, common.ErrorUnauthorized)
	}
	return acc, nil
}

func sameEmail(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && b != "" && strings.EqualFold(a, b)
}
