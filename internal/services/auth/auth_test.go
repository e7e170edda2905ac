package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solusikonsep/deploykit/internal/lib/jwt"
	"github.com/solusikonsep/deploykit/internal/lib/password"
	"github.com/solusikonsep/deploykit/internal/models"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockSubscriptions struct {
	mock.Mock
}

func (m *MockSubscriptions) CreateInitial(ctx context.Context, userUID string) (int, error) {
	args := m.Called(ctx, userUID)
	return args.Int(0), args.Error(1)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockUserRepository, *MockSubscriptions)
		expectedError bool
	}{
		{
			name: "creates user and opens starter subscription",
			setupMocks: func(u *MockUserRepository, s *MockSubscriptions) {
				u.On("RegisterUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Username == "budi" &&
						user.Role == models.RoleUser &&
						user.UID != "" &&
						user.PasswordHash != "secret123"
				})).Return("uid-1", nil).Once()
				s.On("CreateInitial", mock.Anything, "uid-1").Return(1, nil).Once()
			},
		},
		{
			name: "repository error",
			setupMocks: func(u *MockUserRepository, s *MockSubscriptions) {
				u.On("RegisterUser", mock.Anything, mock.Anything).Return("", errors.New("duplicate username")).Once()
			},
			expectedError: true,
		},
		{
			name: "subscription provisioning error",
			setupMocks: func(u *MockUserRepository, s *MockSubscriptions) {
				u.On("RegisterUser", mock.Anything, mock.Anything).Return("uid-1", nil).Once()
				s.On("CreateInitial", mock.Anything, "uid-1").Return(0, errors.New("db error")).Once()
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			subs := new(MockSubscriptions)
			service := New(users, subs, jwt.NewJWTMaker("test-secret", time.Hour))

			tt.setupMocks(users, subs)

			uid, err := service.Register(context.Background(), "budi", "budi@example.com", "secret123")

			if tt.expectedError {
				assert.Error(t, err)
				assert.Empty(t, uid)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "uid-1", uid)
			}
			users.AssertExpectations(t)
			subs.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)

	user := &models.User{
		UID:          "uid-1",
		Username:     "budi",
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	tests := []struct {
		name          string
		password      string
		setupMocks    func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "valid credentials issue token",
			password: "secret123",
			setupMocks: func(u *MockUserRepository) {
				u.On("GetUserByUsername", mock.Anything, "budi").Return(user, nil).Once()
			},
		},
		{
			name:     "wrong password",
			password: "wrong",
			setupMocks: func(u *MockUserRepository) {
				u.On("GetUserByUsername", mock.Anything, "budi").Return(user, nil).Once()
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:     "unknown user reads the same as wrong password",
			password: "secret123",
			setupMocks: func(u *MockUserRepository) {
				u.On("GetUserByUsername", mock.Anything, "budi").Return(nil, errors.New("no rows")).Once()
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			service := New(users, new(MockSubscriptions), jwt.NewJWTMaker("test-secret", time.Hour))

			tt.setupMocks(users)

			token, role, err := service.Login(context.Background(), "budi", tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, models.RoleUser, role)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestService_ValidateToken_RoundTrip(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	service := New(new(MockUserRepository), new(MockSubscriptions), maker)

	token, err := maker.GenerateToken("budi", models.RoleAdmin, "uid-1")
	require.NoError(t, err)

	claims, err := service.ValidateToken(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "budi", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "uid-1", claims.UserUID)
}
