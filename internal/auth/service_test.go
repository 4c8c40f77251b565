package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/clock"
	"github.com/homefixer/homefixer/internal/logging"
)

type staticAccounts map[string]account.Account

func (s staticAccounts) FindByID(_ context.Context, id string) (account.Account, error) {
	acc, ok := s[id]
	if !ok {
		return account.Account{}, apperr.New(apperr.ErrNotFound, "account not found")
	}
	return acc, nil
}

func newTestService(t *testing.T) (*Service, *clock.Fixed, account.Account) {
	t.Helper()
	clk := &clock.Fixed{T: time.Now().UTC().Truncate(time.Second)}
	acc := account.Account{ID: "8d0d6a44-5a7c-4c1b-9a43-1f3f6f5b1d11", Email: "a@x.com", Role: account.RoleVendor, Active: true}
	svc := NewService(Config{
		Secret:     "test-secret",
		Issuer:     "HomeFixer",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, NewMemoryBlacklist(clk), staticAccounts{acc.ID: acc}, clk, logging.Discard())
	return svc, clk, acc
}

func TestIssueAndAuthenticate(t *testing.T) {
	svc, _, acc := newTestService(t)

	pair, err := svc.Issue(acc)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	claims, err := svc.Authenticate(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.Subject)
	assert.Equal(t, "VENDOR", claims.Role)
	assert.Equal(t, TokenAccess, claims.Type)

	_, err = svc.Authenticate(pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAuthenticateRejectsExpiredAndForeignTokens(t *testing.T) {
	svc, clk, acc := newTestService(t)
	pair, err := svc.Issue(acc)
	require.NoError(t, err)

	clk.Advance(6 * time.Minute)
	_, err = svc.Authenticate(pair.Access)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Type: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Subject:   acc.ID,
			Issuer:    "HomeFixer",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.Authenticate(forged)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	ctx := context.Background()
	svc, _, acc := newTestService(t)
	pair, err := svc.Issue(acc)
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	claims, err := svc.Authenticate(access)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.Subject)

	_, err = svc.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
}

func TestRevokeIsOneShot(t *testing.T) {
	ctx := context.Background()
	svc, _, acc := newTestService(t)
	pair, err := svc.Issue(acc)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, acc.ID, pair.Refresh))

	err = svc.Revoke(ctx, acc.ID, pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)

	_, err = svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)

	// The access token of the same pair keeps working until it expires.
	_, err = svc.Authenticate(pair.Access)
	assert.NoError(t, err)
}

func TestRevokeRejectsGarbageAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	svc, _, acc := newTestService(t)

	assert.ErrorIs(t, svc.Revoke(ctx, acc.ID, "not-a-jwt"), apperr.ErrInvalidCredential)

	pair, err := svc.Issue(acc)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Revoke(ctx, "someone-else", pair.Refresh), apperr.ErrInvalidCredential)
	assert.ErrorIs(t, svc.Revoke(ctx, acc.ID, pair.Access), apperr.ErrInvalidCredential)
}

func TestRevokeRejectsExpiredRefresh(t *testing.T) {
	ctx := context.Background()
	svc, clk, acc := newTestService(t)
	pair, err := svc.Issue(acc)
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)
	assert.ErrorIs(t, svc.Revoke(ctx, acc.ID, pair.Refresh), apperr.ErrInvalidCredential)
}
