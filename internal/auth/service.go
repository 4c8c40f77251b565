package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/clock"
)

// AccountFinder resolves the account a token was issued to.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (account.Account, error)
}

// Config holds the token settings.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service mints, refreshes and revokes session credentials.
type Service struct {
	cfg       Config
	codec     codec
	blacklist Blacklist
	accounts  AccountFinder
	logger    *slog.Logger
}

// TokenPair is the credential pair handed to clients.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// NewService builds a session service. A nil clock uses the system clock.
func NewService(cfg Config, blacklist Blacklist, accounts AccountFinder, c clock.Clock, logger *slog.Logger) *Service {
	if c == nil {
		c = clock.System{}
	}
	return &Service{
		cfg:       cfg,
		codec:     codec{secret: []byte(cfg.Secret), issuer: cfg.Issuer, now: c.Now},
		blacklist: blacklist,
		accounts:  accounts,
		logger:    logger,
	}
}

// Issue mints a fresh access/refresh pair for acc.
func (s *Service) Issue(acc account.Account) (TokenPair, error) {
	access, _, err := s.codec.sign(acc.ID, acc.Role.String(), TokenAccess, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.codec.sign(acc.ID, acc.Role.String(), TokenRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Authenticate validates an access token and returns its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := s.codec.parse(token, TokenAccess)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "Given token not valid for any token type", err)
	}
	return claims, nil
}

// Refresh exchanges a live, non-revoked refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.codec.parse(refreshToken, TokenRefresh)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidCredential, "Invalid or expired refresh token", err)
	}
	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return "", apperr.New(apperr.ErrInvalidCredential, "Token is blacklisted")
	}

	acc, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidCredential, "User not found", err)
	}
	if !acc.Active {
		return "", apperr.New(apperr.ErrInvalidCredential, "User is inactive")
	}

	access, _, err := s.codec.sign(acc.ID, acc.Role.String(), TokenAccess, s.cfg.AccessTTL)
	return access, err
}

// Revoke blacklists refreshToken so it can never mint another access token.
// The token must belong to accountID. Malformed, expired, foreign or already
// revoked tokens yield apperr.ErrInvalidCredential.
func (s *Service) Revoke(ctx context.Context, accountID, refreshToken string) error {
	claims, err := s.codec.parse(refreshToken, TokenRefresh)
	if err != nil {
		return apperr.Wrap(apperr.ErrInvalidCredential, "Invalid or expired refresh token", err)
	}
	if claims.Subject != accountID {
		return apperr.New(apperr.ErrInvalidCredential, "Invalid or expired refresh token")
	}

	added, err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return fmt.Errorf("blacklist refresh token: %w", err)
	}
	if !added {
		return apperr.New(apperr.ErrInvalidCredential, "Invalid or expired refresh token")
	}

	if s.logger != nil {
		s.logger.Info("session revoked", slog.String("account_id", accountID), slog.String("jti", claims.ID))
	}
	return nil
}
