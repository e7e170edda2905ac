package reconciler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockSubscriptionExpirer struct {
	mock.Mock
}

func (m *MockSubscriptionExpirer) ExpireOverdue(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockApplicationExpirer struct {
	mock.Mock
}

func (m *MockApplicationExpirer) CascadeExpire(ctx context.Context, userUID string) ([]string, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestService_Sweep_CascadesPerUser(t *testing.T) {
	subs := new(MockSubscriptionExpirer)
	apps := new(MockApplicationExpirer)
	service := New(subs, apps, time.Hour, newNoopLogger())

	subs.On("ExpireOverdue", mock.Anything).Return([]string{"user1", "user2"}, nil).Once()
	apps.On("CascadeExpire", mock.Anything, "user1").Return([]string{"blog"}, nil).Once()
	apps.On("CascadeExpire", mock.Anything, "user2").Return([]string{}, nil).Once()

	service.Sweep(context.Background(), nil)

	subs.AssertExpectations(t)
	apps.AssertExpectations(t)
}

func TestService_Sweep_NothingDueSkipsCascade(t *testing.T) {
	subs := new(MockSubscriptionExpirer)
	apps := new(MockApplicationExpirer)
	service := New(subs, apps, time.Hour, newNoopLogger())

	subs.On("ExpireOverdue", mock.Anything).Return([]string{}, nil).Once()

	service.Sweep(context.Background(), nil)

	apps.AssertNotCalled(t, "CascadeExpire", mock.Anything, mock.Anything)
}

func TestService_Sweep_ExpireErrorStopsSweep(t *testing.T) {
	subs := new(MockSubscriptionExpirer)
	apps := new(MockApplicationExpirer)
	service := New(subs, apps, time.Hour, newNoopLogger())

	subs.On("ExpireOverdue", mock.Anything).Return(nil, errors.New("db error")).Once()

	service.Sweep(context.Background(), nil)

	apps.AssertNotCalled(t, "CascadeExpire", mock.Anything, mock.Anything)
}

func TestService_Sweep_CascadeErrorDoesNotBlockOtherUsers(t *testing.T) {
	subs := new(MockSubscriptionExpirer)
	apps := new(MockApplicationExpirer)
	service := New(subs, apps, time.Hour, newNoopLogger())

	subs.On("ExpireOverdue", mock.Anything).Return([]string{"user1", "user2"}, nil).Once()
	apps.On("CascadeExpire", mock.Anything, "user1").Return(nil, errors.New("db error")).Once()
	apps.On("CascadeExpire", mock.Anything, "user2").Return([]string{"shop"}, nil).Once()

	service.Sweep(context.Background(), nil)

	subs.AssertExpectations(t)
	apps.AssertExpectations(t)
}

func TestService_Run_StopsOnContextCancel(t *testing.T) {
	subs := new(MockSubscriptionExpirer)
	apps := new(MockApplicationExpirer)
	service := New(subs, apps, time.Hour, newNoopLogger())

	subs.On("ExpireOverdue", mock.Anything).Return([]string{}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Run(ctx, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	subs.AssertExpectations(t)
}
