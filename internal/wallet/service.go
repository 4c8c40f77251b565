package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/homefixer/homefixer/internal/clock"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Service exposes the read side of wallets. Balances are never mutated here.
type Service struct {
	repo   Repository
	clock  clock.Clock
	logger *slog.Logger
}

// NewService builds a wallet service instance. A nil clock uses the system clock.
func NewService(repo Repository, c clock.Clock, logger *slog.Logger) *Service {
	if c == nil {
		c = clock.System{}
	}
	return &Service{repo: repo, clock: c, logger: logger}
}

// Statement is a wallet with its latest transactions.
type Statement struct {
	Wallet       Wallet
	Transactions []Transaction
}

// ForOwner returns the wallet of userID, provisioning an empty one on first
// access, together with up to limit recent transactions. Non-positive limits
// use the default page size and large ones are capped.
func (s *Service) ForOwner(ctx context.Context, userID string, limit int) (Statement, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	candidate := Wallet{ID: uuid.NewString(), UserID: userID, UpdatedAt: s.clock.Now().UTC()}
	w, err := s.repo.EnsureForOwner(ctx, candidate)
	if err != nil {
		return Statement{}, fmt.Errorf("load wallet: %w", err)
	}
	if w.ID == candidate.ID && s.logger != nil {
		s.logger.Info("wallet provisioned", slog.String("account_id", userID), slog.String("wallet_id", w.ID))
	}

	txs, err := s.repo.Transactions(ctx, w.ID, limit)
	if err != nil {
		return Statement{}, fmt.Errorf("load transactions: %w", err)
	}
	return Statement{Wallet: w, Transactions: txs}, nil
}
