package app

import (
	"context"
	"time"

	"realtime_chat_service/internal/account/domain"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository Mock AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

// CreateAccount mock create account
func (m *MockAccountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// FindByAccount mock account lookup
func (m *MockAccountRepository) FindByAccount(ctx context.Context, param *domain.AccountQuery) (*domain.Account, error) {
	args := m.Called(ctx, param)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

// SearchByUsername mock username search
func (m *MockAccountRepository) SearchByUsername(ctx context.Context, q string, limit int) ([]domain.Account, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdatePresence mock presence write
func (m *MockAccountRepository) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen *time.Time) error {
	args := m.Called(ctx, userID, online, lastSeen)
	return args.Error(0)
}

// MockPresenceCache Mock RedisRepository[domain.PresenceRecord]
type MockPresenceCache struct {
	mock.Mock
}

// Set mock cache write
func (m *MockPresenceCache) Set(ctx context.Context, key string, value domain.PresenceRecord, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get mock cache read
func (m *MockPresenceCache) Get(ctx context.Context, key string) (domain.PresenceRecord, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.PresenceRecord), args.Error(1)
}

// Del mock cache delete
func (m *MockPresenceCache) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// GetTTL mock ttl read
func (m *MockPresenceCache) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// ExtendTTL mock ttl extension
func (m *MockPresenceCache) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}
