package repository

import (
	"context"
	"sync"

	"push-backend/internal/subscription/domain"
)

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

// Put creates or replaces a user.
func (r *MemoryUserRepository) Put(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// MemorySubscriptionRepository keeps the membership ledger in process memory.
type MemorySubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscription
}

func NewMemorySubscriptionRepository() *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{subs: make(map[string]domain.Subscription)}
}

func (r *MemorySubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subs[userID]
	if !ok {
		return nil, nil
	}
	s.Topics = append([]string(nil), s.Topics...)
	return &s, nil
}

func (r *MemorySubscriptionRepository) Save(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := *sub
	s.Topics = append([]string(nil), sub.Topics...)
	r.subs[sub.UserID] = s
	return nil
}

func (r *MemorySubscriptionRepository) SaveIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subs[sub.UserID]; exists {
		return false, nil
	}
	s := *sub
	s.Topics = append([]string(nil), sub.Topics...)
	r.subs[sub.UserID] = s
	return true, nil
}

var (
	_ UserRepository         = (*MemoryUserRepository)(nil)
	_ SubscriptionRepository = (*MemorySubscriptionRepository)(nil)
)
