package services

import (
	"context"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type mockEntitlementRepo struct {
	mock.Mock
}

func (m *mockEntitlementRepo) Get(ctx context.Context, userID domain.UserID) (*domain.Entitlement, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entitlement), args.Error(1)
}

func (m *mockEntitlementRepo) Upsert(ctx context.Context, userID domain.UserID, expireAt time.Time) error {
	args := m.Called(ctx, userID, expireAt)
	return args.Error(0)
}

func (m *mockEntitlementRepo) Remove(ctx context.Context, userID domain.UserID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockEntitlementRepo) RemoveExpired(ctx context.Context, userID domain.UserID, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockEntitlementRepo) ListUserIDs(ctx context.Context) ([]domain.UserID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserID), args.Error(1)
}

// renewingRepo upserts renewTo just before every RemoveExpired, the way a
// concurrent grant would land between a read and the removal.
type renewingRepo struct {
	ports.EntitlementRepository
	renewTo time.Time
}

func (r *renewingRepo) RemoveExpired(ctx context.Context, userID domain.UserID, now time.Time) (bool, error) {
	if err := r.Upsert(ctx, userID, r.renewTo); err != nil {
		return false, err
	}
	return r.EntitlementRepository.RemoveExpired(ctx, userID, now)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyExpired(ctx context.Context, userID domain.UserID, name string) error {
	args := m.Called(ctx, userID, name)
	return args.Error(0)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Lookup(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveAdminChat(ctx context.Context, ref domain.ChatRef) (int64, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(int64), args.Error(1)
}

// clock is a settable time source shared by services under test.
type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func expiry(t time.Time) *domain.Entitlement {
	return &domain.Entitlement{ExpireAt: &t}
}
