package otp

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   []Code
}

// NewMemoryRepository builds an in-memory code store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Insert(_ context.Context, code Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	code.ID = r.nextID
	r.rows = append(r.rows, code)
	return nil
}

func (r *memoryRepository) ConsumeUnverified(_ context.Context, email, code string, notBefore, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		row := &r.rows[i]
		if row.Email != email || row.Code != code || row.Verified || row.CreatedAt.Before(notBefore) {
			continue
		}
		verifiedAt := now
		row.Verified = true
		row.VerifiedAt = &verifiedAt
		return true, nil
	}
	return false, nil
}

func (r *memoryRepository) HasVerified(_ context.Context, email string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Email == email && row.Verified && row.VerifiedAt != nil && !row.VerifiedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}
