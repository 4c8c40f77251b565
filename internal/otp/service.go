package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/clock"
	"github.com/homefixer/homefixer/internal/notification"
)

const (
	// DefaultTTL is how long an issued code stays usable.
	DefaultTTL = 5 * time.Minute
	codeDigits = 6
)

var codeSpace = big.NewInt(1_000_000)

// Service issues and verifies email one-time codes.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	clock    clock.Clock
	ttl      time.Duration
	random   io.Reader
	logger   *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRandom replaces the entropy source used for code generation.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// NewService constructs the OTP issuer/verifier.
func NewService(repo Repository, notifier notification.Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		clock:    clock.System{},
		ttl:      DefaultTTL,
		random:   rand.Reader,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured code lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue stores a fresh code for email and sends it. Every call creates a new
// row; earlier codes stay valid until they expire or are used. A delivery
// failure is reported as apperr.ErrDelivery after the row is stored.
func (s *Service) Issue(ctx context.Context, email string) error {
	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	row := Code{Email: email, Code: code, CreatedAt: s.clock.Now().UTC()}
	if err := s.repo.Insert(ctx, row); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if s.notifier != nil {
		msg := notification.Message{
			Kind:        notification.KindOTPEmail,
			Destination: email,
			Subject:     "Your HomeFixer OTP",
			Body:        fmt.Sprintf("Your OTP is %s. It is valid for %d minutes.", code, int(s.ttl.Minutes())),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			if s.logger != nil {
				s.logger.Warn("otp delivery failed", slog.String("email", email), slog.Any("error", err))
			}
			return apperr.Wrap(apperr.ErrDelivery, "Failed to send OTP email", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("otp issued", slog.String("email", email))
	}
	return nil
}

// Verify consumes an unexpired, unverified code matching (email, code). It
// returns false without error when nothing matches; a consumed code never
// matches again.
func (s *Service) Verify(ctx context.Context, email, code string) (bool, error) {
	if len(code) != codeDigits {
		return false, nil
	}
	now := s.clock.Now().UTC()
	ok, err := s.repo.ConsumeUnverified(ctx, email, code, now.Add(-s.ttl), now)
	if err != nil {
		return false, fmt.Errorf("verify otp: %w", err)
	}
	return ok, nil
}

// WasVerified reports whether email passed OTP verification within window.
// A zero window accepts any past verification.
func (s *Service) WasVerified(ctx context.Context, email string, window time.Duration) (bool, error) {
	var since time.Time
	if window > 0 {
		since = s.clock.Now().UTC().Add(-window)
	}
	return s.repo.HasVerified(ctx, email, since)
}

func (s *Service) generate() (string, error) {
	n, err := rand.Int(s.random, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
