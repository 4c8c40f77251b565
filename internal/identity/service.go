package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/auth"
)

// OTP issues and consumes email one-time codes.
type OTP interface {
	Issue(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (bool, error)
	WasVerified(ctx context.Context, email string, window time.Duration) (bool, error)
}

// Directory is the account store the flows read and write.
type Directory interface {
	Exists(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (account.Account, error)
	FindByID(ctx context.Context, id string) (account.Account, error)
	Create(ctx context.Context, in account.NewAccount) (account.Account, error)
	CreateWithPassword(ctx context.Context, in account.NewAccount, password string) (account.Account, error)
}

// Sessions mints and revokes token pairs.
type Sessions interface {
	Issue(acc account.Account) (auth.TokenPair, error)
	Revoke(ctx context.Context, accountID, refreshToken string) error
}

// Result is what a successful login or registration hands back.
type Result struct {
	Account account.Account
	Tokens  auth.TokenPair
}

// Registration carries the optional fields of the OTP-only signup.
type Registration struct {
	Email string
	Code  string
	Name  string
	Phone string
	Role  account.Role
}

// Completion carries the password signup fields.
type Completion struct {
	Email    string
	Name     string
	Phone    string
	Role     account.Role
	Password string
}

// Service sequences the login, registration and logout flows.
type Service struct {
	otp            OTP
	accounts       Directory
	sessions       Sessions
	verifiedWindow time.Duration
	logger         *slog.Logger
}

// NewService wires the flow orchestrator. verifiedWindow bounds how old an
// email verification may be when completing a password registration; zero
// accepts any past verification.
func NewService(otp OTP, accounts Directory, sessions Sessions, verifiedWindow time.Duration, logger *slog.Logger) *Service {
	return &Service{
		otp:            otp,
		accounts:       accounts,
		sessions:       sessions,
		verifiedWindow: verifiedWindow,
		logger:         logger,
	}
}

// LoginSendOTP mails a login code to a registered email.
func (s *Service) LoginSendOTP(ctx context.Context, email string) error {
	email = account.NormalizeEmail(email)
	exists, err := s.accounts.Exists(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if !exists {
		return apperr.New(apperr.ErrNotFound, "User not found. Please register.")
	}
	return s.otp.Issue(ctx, email)
}

// LoginVerifyOTP consumes a login code and opens a session.
func (s *Service) LoginVerifyOTP(ctx context.Context, email, code string) (Result, error) {
	email = account.NormalizeEmail(email)
	if err := s.consume(ctx, email, code); err != nil {
		return Result{}, err
	}

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Result{}, apperr.Wrap(apperr.ErrInvalidCredential, "Invalid or expired OTP", err)
		}
		return Result{}, fmt.Errorf("load account: %w", err)
	}
	if !acc.Active {
		return Result{}, apperr.New(apperr.ErrInvalidCredential, "User account is disabled.")
	}
	return s.open(acc, "login")
}

// RegisterSendOTP mails a signup code to an email that is not registered yet.
func (s *Service) RegisterSendOTP(ctx context.Context, email string) error {
	email = account.NormalizeEmail(email)
	if err := s.requireUnregistered(ctx, email); err != nil {
		return err
	}
	return s.otp.Issue(ctx, email)
}

// RegisterVerifyOTP consumes a signup code and creates a verified account
// without a password.
func (s *Service) RegisterVerifyOTP(ctx context.Context, in Registration) (Result, error) {
	email := account.NormalizeEmail(in.Email)
	if err := s.requireUnregistered(ctx, email); err != nil {
		return Result{}, err
	}
	if err := s.consume(ctx, email, in.Code); err != nil {
		return Result{}, err
	}

	acc, err := s.accounts.Create(ctx, account.NewAccount{
		Name:     in.Name,
		Email:    email,
		Phone:    in.Phone,
		Role:     in.Role,
		Verified: true,
	})
	if err != nil {
		return Result{}, s.createError(err)
	}
	return s.open(acc, "register")
}

// VerifyEmail consumes a signup code without creating an account. It is the
// precondition of RegisterComplete.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = account.NormalizeEmail(email)
	if err := s.requireUnregistered(ctx, email); err != nil {
		return err
	}
	return s.consume(ctx, email, code)
}

// RegisterComplete creates a password account for an email that passed OTP
// verification recently enough. Concurrent calls for one email have exactly
// one winner; the rest get apperr.ErrConflict.
func (s *Service) RegisterComplete(ctx context.Context, in Completion) (Result, error) {
	email := account.NormalizeEmail(in.Email)
	exists, err := s.accounts.Exists(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("lookup account: %w", err)
	}
	if exists {
		return Result{}, apperr.New(apperr.ErrValidation, "email: User with this email already exists")
	}

	verified, err := s.otp.WasVerified(ctx, email, s.verifiedWindow)
	if err != nil {
		return Result{}, fmt.Errorf("check email verification: %w", err)
	}
	if !verified {
		return Result{}, apperr.New(apperr.ErrValidation, "Email not verified or OTP expired")
	}

	acc, err := s.accounts.CreateWithPassword(ctx, account.NewAccount{
		Name:     in.Name,
		Email:    email,
		Phone:    in.Phone,
		Role:     in.Role,
		Verified: true,
	}, in.Password)
	if err != nil {
		return Result{}, s.createError(err)
	}
	return s.open(acc, "register_complete")
}

// Logout revokes refreshToken on behalf of accountID.
func (s *Service) Logout(ctx context.Context, accountID, refreshToken string) error {
	return s.sessions.Revoke(ctx, accountID, refreshToken)
}

// Profile returns the caller's account.
func (s *Service) Profile(ctx context.Context, accountID string) (account.Account, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return account.Account{}, apperr.Wrap(apperr.ErrNotFound, "User not found.", err)
		}
		return account.Account{}, err
	}
	return acc, nil
}

func (s *Service) requireUnregistered(ctx context.Context, email string) error {
	exists, err := s.accounts.Exists(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if exists {
		return apperr.New(apperr.ErrConflict, "User already exists. Please login.")
	}
	return nil
}

func (s *Service) consume(ctx context.Context, email, code string) error {
	ok, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrInvalidCredential, "Invalid or expired OTP")
	}
	return nil
}

func (s *Service) createError(err error) error {
	if errors.Is(err, apperr.ErrConflict) {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Wrap(apperr.ErrConflict, "User already exists. Please login.", err)
	}
	return fmt.Errorf("create account: %w", err)
}

func (s *Service) open(acc account.Account, flow string) (Result, error) {
	tokens, err := s.sessions.Issue(acc)
	if err != nil {
		return Result{}, fmt.Errorf("issue session: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("session opened",
			slog.String("flow", flow),
			slog.String("account_id", acc.ID),
			slog.String("role", acc.Role.String()),
		)
	}
	return Result{Account: acc, Tokens: tokens}, nil
}
