//go:build integration

package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/infra/pgtest"
	"github.com/homefixer/homefixer/internal/logging"
)

func TestPostgresWalletProvisioning(t *testing.T) {
	ctx := context.Background()
	db := pgtest.New(t)

	accounts := account.NewService(account.NewPostgresRepository(db), logging.Discard())
	owner, err := accounts.Create(ctx, account.NewAccount{Email: "owner@x.com", Verified: true})
	require.NoError(t, err)

	svc := NewService(NewPostgresRepository(db), nil, logging.Discard())

	t.Run("concurrent first reads share one wallet", func(t *testing.T) {
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = map[string]struct{}{}
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				st, err := svc.ForOwner(ctx, owner.ID, 0)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[st.Wallet.ID] = struct{}{}
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, ids, 1)
	})

	t.Run("history is newest first", func(t *testing.T) {
		st, err := svc.ForOwner(ctx, owner.ID, 0)
		require.NoError(t, err)
		assert.Zero(t, st.Wallet.Balance)
		assert.Empty(t, st.Transactions)

		walletID := uuid.MustParse(st.Wallet.ID)
		base := time.Now().UTC().Add(-time.Hour)
		for i, kind := range []TxType{Credit, Debit} {
			_, err := db.Exec(ctx, `INSERT INTO wallet_transactions (id, wallet_id, type, amount, description, created_at)
                VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), walletID, string(kind), int64(100*(i+1)), "seed", base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		st, err = svc.ForOwner(ctx, owner.ID, 0)
		require.NoError(t, err)
		require.Len(t, st.Transactions, 2)
		assert.Equal(t, Debit, st.Transactions[0].Type)
		assert.EqualValues(t, 200, st.Transactions[0].Amount)
		assert.Nil(t, st.Transactions[0].BookingID)

		st, err = svc.ForOwner(ctx, owner.ID, 1)
		require.NoError(t, err)
		assert.Len(t, st.Transactions, 1)
	})

	t.Run("unknown owner is not found", func(t *testing.T) {
		_, err := svc.ForOwner(ctx, uuid.NewString(), 0)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
