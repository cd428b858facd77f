package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
)

type MemoryEntitlementRepository struct {
	expiries map[domain.UserID]time.Time
	mu       sync.RWMutex
}

func NewMemoryEntitlementRepository() ports.EntitlementRepository {
	return &MemoryEntitlementRepository{
		expiries: make(map[domain.UserID]time.Time),
	}
}

func (r *MemoryEntitlementRepository) Get(ctx context.Context, userID domain.UserID) (*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expireAt, exists := r.expiries[userID]
	if !exists || expireAt.IsZero() {
		return nil, domain.ErrNotEntitled
	}
	return &domain.Entitlement{UserID: userID, ExpireAt: &expireAt}, nil
}

func (r *MemoryEntitlementRepository) Upsert(ctx context.Context, userID domain.UserID, expireAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expiries[userID] = expireAt
	return nil
}

func (r *MemoryEntitlementRepository) Remove(ctx context.Context, userID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.expiries, userID)
	return nil
}

func (r *MemoryEntitlementRepository) RemoveExpired(ctx context.Context, userID domain.UserID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expireAt, exists := r.expiries[userID]
	if !exists || expireAt.After(now) {
		return false, nil
	}
	delete(r.expiries, userID)
	return true, nil
}

func (r *MemoryEntitlementRepository) ListUserIDs(ctx context.Context) ([]domain.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]domain.UserID, 0, len(r.expiries))
	for id := range r.expiries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
