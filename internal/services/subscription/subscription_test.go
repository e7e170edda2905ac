package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solusikonsep/deploykit/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	args := m.Called(ctx, sub)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockRepository) ActivateSubscription(ctx context.Context, id int, endDate time.Time) (int, error) {
	args := m.Called(ctx, id, endDate)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ExpireOverdueSubscriptions(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestQuota(t *testing.T) {
	tests := []struct {
		plan     string
		expected int
	}{
		{models.PlanStarter, 2},
		{models.PlanPro, 5},
		{models.PlanBusiness, 10},
		{"enterprise", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			assert.Equal(t, tt.expected, Quota(tt.plan))
		})
	}
}

func TestActiveNow(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name     string
		sub      *models.Subscription
		expected bool
	}{
		{
			name:     "nil subscription",
			sub:      nil,
			expected: false,
		},
		{
			name:     "active with future end date",
			sub:      &models.Subscription{Status: models.SubscriptionActive, EndDate: &future},
			expected: true,
		},
		{
			name:     "active but past end date",
			sub:      &models.Subscription{Status: models.SubscriptionActive, EndDate: &past},
			expected: false,
		},
		{
			name:     "inactive",
			sub:      &models.Subscription{Status: models.SubscriptionInactive, EndDate: &future},
			expected: false,
		},
		{
			name:     "expired",
			sub:      &models.Subscription{Status: models.SubscriptionExpired, EndDate: &future},
			expected: false,
		},
		{
			name:     "pending payment",
			sub:      &models.Subscription{Status: models.SubscriptionPendingPayment},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ActiveNow(tt.sub))
		})
	}
}

func TestService_Current_CacheAside(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	sub := &models.Subscription{ID: 1, UserUID: "user123", Plan: models.PlanPro, Status: models.SubscriptionActive}
	cache.On("Get", "subscription:current:user123", mock.Anything).Return(false, nil).Once()
	repo.On("CurrentSubscription", mock.Anything, "user123").Return(sub, nil).Once()
	cache.On("Set", "subscription:current:user123", sub, mock.Anything).Return(nil).Once()

	result, err := service.Current(context.Background(), "user123")

	assert.NoError(t, err)
	assert.Equal(t, sub, result)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_Current_CacheReadFailureFallsThrough(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	sub := &models.Subscription{ID: 1, UserUID: "user123", Plan: models.PlanStarter, Status: models.SubscriptionInactive}
	cache.On("Get", "subscription:current:user123", mock.Anything).Return(false, errors.New("redis down")).Once()
	repo.On("CurrentSubscription", mock.Anything, "user123").Return(sub, nil).Once()
	cache.On("Set", "subscription:current:user123", sub, mock.Anything).Return(errors.New("redis down")).Once()

	result, err := service.Current(context.Background(), "user123")

	assert.NoError(t, err)
	assert.Equal(t, sub, result)
}

func TestService_Renew(t *testing.T) {
	tests := []struct {
		name          string
		plan          string
		setupMocks    func(*MockRepository, *MockCache)
		expectedID    int
		expectedError bool
	}{
		{
			name: "renew onto pro",
			plan: models.PlanPro,
			setupMocks: func(r *MockRepository, c *MockCache) {
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
					return sub.UserUID == "user123" &&
						sub.Plan == models.PlanPro &&
						sub.Status == models.SubscriptionInactive
				})).Return(5, nil).Once()
				c.On("Invalidate", "subscription:current:user123").Return(nil).Once()
			},
			expectedID: 5,
		},
		{
			name:          "unknown plan rejected",
			plan:          "enterprise",
			setupMocks:    func(r *MockRepository, c *MockCache) {},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			cache := new(MockCache)
			service := New(repo, cache, newNoopLogger())

			tt.setupMocks(repo, cache)

			id, err := service.Renew(context.Background(), "user123", tt.plan)

			if tt.expectedError {
				assert.Error(t, err)
				repo.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, id)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestService_CreateInitial_OpensInactiveStarter(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.Plan == models.PlanStarter && sub.Status == models.SubscriptionInactive
	})).Return(1, nil).Once()
	cache.On("Invalidate", "subscription:current:user123").Return(nil).Once()

	id, err := service.CreateInitial(context.Background(), "user123")

	assert.NoError(t, err)
	assert.Equal(t, 1, id)
	repo.AssertExpectations(t)
}

func TestService_Activate(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockRepository, *MockCache)
		expectedError bool
	}{
		{
			name: "activates three months out",
			setupMocks: func(r *MockRepository, c *MockCache) {
				r.On("ActivateSubscription", mock.Anything, 5, mock.MatchedBy(func(endDate time.Time) bool {
					expected := time.Now().UTC().AddDate(0, 3, 0)
					return endDate.Sub(expected).Abs() < time.Minute
				})).Return(1, nil).Once()
				c.On("Invalidate", "subscription:current:user123").Return(nil).Once()
			},
		},
		{
			name: "missing subscription",
			setupMocks: func(r *MockRepository, c *MockCache) {
				r.On("ActivateSubscription", mock.Anything, 5, mock.Anything).Return(0, nil).Once()
			},
			expectedError: true,
		},
		{
			name: "repository error",
			setupMocks: func(r *MockRepository, c *MockCache) {
				r.On("ActivateSubscription", mock.Anything, 5, mock.Anything).Return(0, errors.New("db error")).Once()
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			cache := new(MockCache)
			service := New(repo, cache, newNoopLogger())

			tt.setupMocks(repo, cache)

			err := service.Activate(context.Background(), 5, "user123")

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestService_ExpireOverdue(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	repo.On("ExpireOverdueSubscriptions", mock.Anything, mock.Anything).
		Return([]string{"user1", "user2"}, nil).Once()
	cache.On("Invalidate", "subscription:current:user1").Return(nil).Once()
	cache.On("Invalidate", "subscription:current:user2").Return(nil).Once()

	uids, err := service.ExpireOverdue(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []string{"user1", "user2"}, uids)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_ExpireOverdue_NothingDue(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	repo.On("ExpireOverdueSubscriptions", mock.Anything, mock.Anything).
		Return([]string{}, nil).Once()

	uids, err := service.ExpireOverdue(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, uids)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}
