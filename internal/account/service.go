package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/clock"
)

// Service is the account directory used by the auth flows.
type Service struct {
	repo   Repository
	clock  clock.Clock
	logger *slog.Logger
	cost   int
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithBcryptCost overrides the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates an account directory.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, clock: clock.System{}, logger: logger, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists reports whether email is registered.
func (s *Service) Exists(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, NormalizeEmail(email))
}

// FindByEmail returns the account registered under email.
func (s *Service) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

// FindByID returns the account with the given id.
func (s *Service) FindByID(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// Profile returns the role profile owned by acc.
func (s *Service) Profile(ctx context.Context, acc Account) (Profile, error) {
	return s.repo.FindProfile(ctx, acc)
}

// Create registers an account without a password, together with the profile
// matching its role.
func (s *Service) Create(ctx context.Context, in NewAccount) (Account, error) {
	return s.create(ctx, in, nil)
}

// CreateWithPassword registers an account and stores a bcrypt hash of password.
func (s *Service) CreateWithPassword(ctx context.Context, in NewAccount, password string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	return s.create(ctx, in, hash)
}

func (s *Service) create(ctx context.Context, in NewAccount, passwordHash []byte) (Account, error) {
	if in.Email == "" {
		return Account{}, apperr.New(apperr.ErrValidation, "email: This field is required.")
	}
	if in.Role == "" {
		in.Role = RoleCustomer
	}

	now := s.clock.Now().UTC()
	acc := Account{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Email:        NormalizeEmail(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
		Verified:     in.Verified,
		Active:       true,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	profile, _ := NewProfile(acc.Role, acc.ID)
	if err := s.repo.CreateWithProfile(ctx, acc, profile); err != nil {
		return Account{}, err
	}

	if s.logger != nil {
		s.logger.Info("account created",
			slog.String("account_id", acc.ID),
			slog.String("role", acc.Role.String()),
			slog.Bool("password", acc.HasPassword()),
		)
	}
	return acc, nil
}

// CheckPassword compares a plaintext password with the stored hash.
func CheckPassword(acc Account, password string) bool {
	if !acc.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) == nil
}

// NormalizeEmail lowercases the domain part, mirroring the usual
// normalisation applied before uniqueness checks.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}
