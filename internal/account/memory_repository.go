package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/homefixer/homefixer/internal/apperr"
)

type memoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]Account
	byEmail  map[string]string
	byPhone  map[string]string
	profiles map[string]Profile
}

// NewMemoryRepository builds an in-memory account store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:     make(map[string]Account),
		byEmail:  make(map[string]string),
		byPhone:  make(map[string]string),
		profiles: make(map[string]Profile),
	}
}

func (r *memoryRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return Account{}, fmt.Errorf("account: %w", apperr.ErrNotFound)
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok {
		return Account{}, fmt.Errorf("account: %w", apperr.ErrNotFound)
	}
	return acc, nil
}

func (r *memoryRepository) CreateWithProfile(_ context.Context, acc Account, profile Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[acc.Email]; exists {
		return apperr.New(apperr.ErrConflict, "User with this email already exists.")
	}
	if acc.Phone != "" {
		if _, exists := r.byPhone[acc.Phone]; exists {
			return apperr.New(apperr.ErrConflict, "User with this phone already exists.")
		}
		r.byPhone[acc.Phone] = acc.ID
	}
	r.byID[acc.ID] = acc
	r.byEmail[acc.Email] = acc.ID
	if profile != nil {
		r.profiles[acc.ID] = profile
	}
	return nil
}

func (r *memoryRepository) FindProfile(_ context.Context, acc Account) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[acc.ID]
	if !ok {
		return nil, fmt.Errorf("profile for %s: %w", acc.ID, apperr.ErrNotFound)
	}
	return p, nil
}
