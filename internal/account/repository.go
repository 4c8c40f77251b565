package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homefixer/homefixer/internal/apperr"
)

const uniqueViolation = "23505"

// Repository persists accounts and their role profiles.
type Repository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	// CreateWithProfile stores the account and, when profile is non-nil, its
	// profile atomically. Duplicate email or phone yields apperr.ErrConflict.
	CreateWithProfile(ctx context.Context, acc Account, profile Profile) error
	FindProfile(ctx context.Context, acc Account) (Profile, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAccount = `SELECT id, name, email, phone, role, is_verified, is_active, password_hash, created_at, updated_at FROM users`

// ExistsByEmail reports whether an account uses email.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// FindByEmail fetches an account by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, selectAccount+` WHERE email = $1`, email))
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, fmt.Errorf("account %q: %w", id, apperr.ErrNotFound)
	}
	return scanAccount(r.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, accountID))
}

// CreateWithProfile inserts the user row and its profile in one transaction.
func (r *PostgresRepository) CreateWithProfile(ctx context.Context, acc Account, profile Profile) error {
	accountID, err := uuid.Parse(acc.ID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	_, err = tx.Exec(ctx, `INSERT INTO users (id, name, email, phone, role, is_verified, is_active, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		accountID, acc.Name, acc.Email, nullable(acc.Phone), string(acc.Role), acc.Verified, acc.Active,
		acc.PasswordHash, acc.CreatedAt.UTC(), acc.UpdatedAt.UTC())
	if err != nil {
		return mapWriteError(err)
	}

	if profile != nil {
		if err := insertProfile(ctx, tx, accountID, profile); err != nil {
			return mapWriteError(err)
		}
	}

	return tx.Commit(ctx)
}

// FindProfile loads the profile variant matching the account role.
func (r *PostgresRepository) FindProfile(ctx context.Context, acc Account) (Profile, error) {
	accountID, err := uuid.Parse(acc.ID)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", acc.ID, apperr.ErrNotFound)
	}

	var profile Profile
	switch acc.Role {
	case RoleCustomer:
		p := CustomerProfile{UserID: acc.ID}
		err = r.db.QueryRow(ctx, `SELECT default_address, default_lat, default_long, profile_pic_url
            FROM customer_profiles WHERE user_id = $1`, accountID).
			Scan(&p.DefaultAddress, &p.DefaultLat, &p.DefaultLong, &p.ProfilePicURL)
		profile = p
	case RoleServiceman:
		p := ServicemanProfile{UserID: acc.ID}
		err = r.db.QueryRow(ctx, `SELECT is_online, current_lat, current_long, experience_years, kyc_docs_url, average_rating
            FROM serviceman_profiles WHERE user_id = $1`, accountID).
			Scan(&p.IsOnline, &p.CurrentLat, &p.CurrentLong, &p.ExperienceYears, &p.KYCDocsURL, &p.AverageRating)
		profile = p
	case RoleVendor:
		p := VendorProfile{UserID: acc.ID}
		err = r.db.QueryRow(ctx, `SELECT business_name, gst_number, store_address, store_lat, store_long, opening_hours, bank_account_details
            FROM vendor_profiles WHERE user_id = $1`, accountID).
			Scan(&p.BusinessName, &p.GSTNumber, &p.StoreAddress, &p.StoreLat, &p.StoreLong, &p.OpeningHours, &p.BankAccountDetails)
		profile = p
	default:
		return nil, fmt.Errorf("no profile for role %s: %w", acc.Role, apperr.ErrNotFound)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile for %s: %w", acc.ID, apperr.ErrNotFound)
		}
		return nil, err
	}
	return profile, nil
}

func insertProfile(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, profile Profile) error {
	var err error
	switch p := profile.(type) {
	case CustomerProfile:
		_, err = tx.Exec(ctx, `INSERT INTO customer_profiles (user_id, default_address, default_lat, default_long, profile_pic_url)
            VALUES ($1, $2, $3, $4, $5)`, accountID, p.DefaultAddress, p.DefaultLat, p.DefaultLong, p.ProfilePicURL)
	case ServicemanProfile:
		_, err = tx.Exec(ctx, `INSERT INTO serviceman_profiles (user_id, is_online, current_lat, current_long, experience_years, kyc_docs_url, average_rating)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`, accountID, p.IsOnline, p.CurrentLat, p.CurrentLong, p.ExperienceYears, p.KYCDocsURL, p.AverageRating)
	case VendorProfile:
		_, err = tx.Exec(ctx, `INSERT INTO vendor_profiles (user_id, business_name, gst_number, store_address, store_lat, store_long, opening_hours, bank_account_details)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, accountID, p.BusinessName, p.GSTNumber, p.StoreAddress, p.StoreLat, p.StoreLong, p.OpeningHours, p.BankAccountDetails)
	default:
		err = fmt.Errorf("unsupported profile %T", profile)
	}
	return err
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id        uuid.UUID
		phone     *string
		role      string
		createdAt time.Time
		updatedAt time.Time
		acc       Account
	)
	err := row.Scan(&id, &acc.Name, &acc.Email, &phone, &role, &acc.Verified, &acc.Active, &acc.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("account: %w", apperr.ErrNotFound)
		}
		return Account{}, err
	}
	acc.ID = id.String()
	if phone != nil {
		acc.Phone = *phone
	}
	acc.Role = Role(role)
	acc.CreatedAt = createdAt.UTC()
	acc.UpdatedAt = updatedAt.UTC()
	return acc, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "users_phone_key":
			return apperr.Wrap(apperr.ErrConflict, "User with this phone already exists.", err)
		default:
			return apperr.Wrap(apperr.ErrConflict, "User with this email already exists.", err)
		}
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
