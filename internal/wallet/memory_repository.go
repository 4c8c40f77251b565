package wallet

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byOwner map[string]Wallet
	history map[string][]Transaction
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byOwner: make(map[string]Wallet),
		history: make(map[string][]Transaction),
	}
}

func (r *memoryRepository) EnsureForOwner(_ context.Context, w Wallet) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byOwner[w.UserID]; ok {
		return existing, nil
	}
	r.byOwner[w.UserID] = w
	return w, nil
}

func (r *memoryRepository) Transactions(_ context.Context, walletID string, limit int) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	txs := append([]Transaction(nil), r.history[walletID]...)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (r *memoryRepository) seed(tx Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[tx.WalletID] = append(r.history[tx.WalletID], tx)
	for owner, w := range r.byOwner {
		if w.ID != tx.WalletID {
			continue
		}
		switch tx.Type {
		case Credit:
			w.Balance += tx.Amount
		case Debit:
			w.Balance -= tx.Amount
		}
		if tx.CreatedAt.After(w.UpdatedAt) {
			w.UpdatedAt = tx.CreatedAt
		}
		r.byOwner[owner] = w
	}
}
