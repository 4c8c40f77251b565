package otp

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Code is a stored one-time code.
type Code struct {
	ID         int64
	Email      string
	Code       string
	Verified   bool
	CreatedAt  time.Time
	VerifiedAt *time.Time
}

// Repository persists one-time codes.
type Repository interface {
	Insert(ctx context.Context, code Code) error
	// ConsumeUnverified marks one unverified row matching (email, code)
	// created at or after notBefore as verified. It reports false when no row
	// matched. The find-and-mark step is atomic per row.
	ConsumeUnverified(ctx context.Context, email, code string, notBefore, now time.Time) (bool, error)
	// HasVerified reports whether a verified row exists for email with a
	// verification time at or after since. A zero since matches any row.
	HasVerified(ctx context.Context, email string, since time.Time) (bool, error)
}

// PostgresRepository stores codes in the email_otps table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert adds a new code row.
func (r *PostgresRepository) Insert(ctx context.Context, code Code) error {
	_, err := r.db.Exec(ctx, `INSERT INTO email_otps (email, code, is_verified, created_at) VALUES ($1, $2, $3, $4)`,
		code.Email, code.Code, code.Verified, code.CreatedAt.UTC())
	return err
}

// ConsumeUnverified flips the first matching row in a single statement.
// SKIP LOCKED lets a concurrent verifier move on instead of re-reading a row
// that is about to be marked.
func (r *PostgresRepository) ConsumeUnverified(ctx context.Context, email, code string, notBefore, now time.Time) (bool, error) {
	const query = `
        UPDATE email_otps SET is_verified = TRUE, verified_at = $4
        WHERE id = (
            SELECT id FROM email_otps
            WHERE email = $1 AND code = $2 AND is_verified = FALSE AND created_at >= $3
            ORDER BY id
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, query, email, code, notBefore.UTC(), now.UTC()).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HasVerified checks for a prior successful verification.
func (r *PostgresRepository) HasVerified(ctx context.Context, email string, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
            SELECT 1 FROM email_otps WHERE email = $1 AND is_verified = TRUE AND verified_at >= $2)`,
		email, since.UTC()).Scan(&exists)
	return exists, err
}
