package wallet

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

const foreignKeyViolation = "23503"

// Repository reads wallets and their history.
type Repository interface {
	// EnsureForOwner returns the wallet of userID, creating an empty one when
	// none exists. Concurrent callers observe the same wallet.
	EnsureForOwner(ctx context.Context, w Wallet) (Wallet, error)
	Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureForOwner inserts w unless its owner already has a wallet, then reads
// the owner's wallet back.
func (r *PostgresRepository) EnsureForOwner(ctx context.Context, w Wallet) (Wallet, error) {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return Wallet{}, err
	}
	ownerID, err := uuid.Parse(w.UserID)
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet owner %q: %w", w.UserID, apperr.ErrNotFound)
	}

	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, updated_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (user_id) DO NOTHING`, walletID, ownerID, w.Balance, w.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return Wallet{}, fmt.Errorf("wallet owner %q: %w", w.UserID, apperr.ErrNotFound)
		}
		return Wallet{}, err
	}

	row := r.db.QueryRow(ctx, `SELECT id, user_id, balance, updated_at FROM wallets WHERE user_id = $1`, ownerID)
	var (
		out       Wallet
		id, owner uuid.UUID
		updatedAt time.Time
	)
	if err := row.Scan(&id, &owner, &out.Balance, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fmt.Errorf("wallet for %q: %w", w.UserID, apperr.ErrNotFound)
		}
		return Wallet{}, err
	}
	out.ID = id.String()
	out.UserID = owner.String()
	out.UpdatedAt = updatedAt.UTC()
	return out, nil
}

// Transactions lists the newest transactions of a wallet first.
func (r *PostgresRepository) Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, wallet_id, booking_id, type, amount, description, created_at
        FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			tx           Transaction
			txID, wallet uuid.UUID
			kind         string
			createdAt    time.Time
		)
		if err := rows.Scan(&txID, &wallet, &tx.BookingID, &kind, &tx.Amount, &tx.Description, &createdAt); err != nil {
			return nil, err
		}
		tx.ID = txID.String()
		tx.WalletID = wallet.String()
		tx.Type = TxType(kind)
		tx.CreatedAt = createdAt.UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}
