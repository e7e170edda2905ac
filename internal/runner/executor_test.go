package runner

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solusikonsep/deploykit/internal/config"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, args []string) (Result, error) {
	called := m.Called(ctx, args)
	return called.Get(0).(Result), called.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func configRunner(mode string) config.Runner {
	return config.Runner{
		Mode:           mode,
		Binary:         "dokku",
		CommandTimeout: time.Minute,
	}
}

func TestExecutor_Run(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockRunner)
		expectedError error
		wantSuccess   bool
	}{
		{
			name: "success passes result through",
			setupMocks: func(r *MockRunner) {
				r.On("Run", mock.Anything, []string{"apps:list"}).Return(
					Result{Success: true, Output: "blog\nshop"}, nil).Once()
			},
			wantSuccess: true,
		},
		{
			name: "non-zero exit is a resolved result",
			setupMocks: func(r *MockRunner) {
				r.On("Run", mock.Anything, []string{"apps:list"}).Return(
					Result{Success: false, ExitCode: 1, ErrorOutput: "boom"}, nil).Once()
			},
			wantSuccess: false,
		},
		{
			name: "launch failure surfaces as error",
			setupMocks: func(r *MockRunner) {
				r.On("Run", mock.Anything, []string{"apps:list"}).Return(
					Result{}, ErrLaunch).Once()
			},
			expectedError: ErrLaunch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(MockRunner)
			executor := NewExecutorWithRunner(r, newNoopLogger())

			tt.setupMocks(r)

			result, err := executor.Run(context.Background(), []string{"apps:list"})

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantSuccess, result.Success)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestExecutor_StopApplication(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockRunner)
		wantDestroyed bool
		wantMessage   string
		expectedError error
		errorContains string
	}{
		{
			name: "scale-down succeeds",
			setupMocks: func(r *MockRunner) {
				r.On("Run", mock.Anything, []string{"ps:scale", "blog", "web=0"}).Return(
					Result{Success: true, Output: "scaled"}, nil).Once()
			},
			wantMessage: "application blog stopped successfully",
		},
		{
			name: "scale-down fails, destroy fallback succeeds",
			setupMocks: func(r *MockRunner) {
				r.On("Run", mock.Anything, []string{"ps:scale", "blog", "web=0"}).Return(
					Result{Success: false, ExitCode: 1, ErrorOutput: "no web process"}, nil).Once()
				r.On("Run", mock.Anything, []string{"apps:destroy", "blog", "--force"}).Return(
					Result{Success: true, Output: "destroyed"}, nil).Once()
			},
			wantDestroyed: true,
			wantMessage:   "application blog destroyed successfully",
		},
		{
			name: "both attempts fail, fallback detail reported",
			setupMocks: func(r *MockRunner) {
				r.On("Run", mock.Anything, []string{"ps:scale", "blog", "web=0"}).Return(
					Result{Success: false, ExitCode: 1, ErrorOutput: "no web process"}, nil).Once()
				r.On("Run", mock.Anything, []string{"apps:destroy", "blog", "--force"}).Return(
					Result{Success: false, ExitCode: 20, ErrorOutput: "app locked"}, nil).Once()
			},
			expectedError: ErrCommandFailed,
			errorContains: "exit code 20: app locked",
		},
		{
			name: "launch failure skips fallback",
			setupMocks: func(r *MockRunner) {
				r.On("Run", mock.Anything, []string{"ps:scale", "blog", "web=0"}).Return(
					Result{}, ErrLaunch).Once()
			},
			expectedError: ErrLaunch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(MockRunner)
			executor := NewExecutorWithRunner(r, newNoopLogger())

			tt.setupMocks(r)

			result, err := executor.StopApplication(context.Background(), "blog")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
				assert.True(t, result.Success)
				assert.Equal(t, tt.wantDestroyed, result.Destroyed)
				assert.Equal(t, tt.wantMessage, result.Message)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestNewExecutor_UnknownMode(t *testing.T) {
	_, err := NewExecutor(configRunner("teleport"), newNoopLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown runner mode")
}

func TestNewExecutor_LocalMode(t *testing.T) {
	executor, err := NewExecutor(configRunner("local"), newNoopLogger())
	assert.NoError(t, err)
	assert.NotNil(t, executor)
}
