// Package auth contains registration, login and token validation.
package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/solusikonsep/deploykit/internal/lib/jwt"
	"github.com/solusikonsep/deploykit/internal/lib/password"
	"github.com/solusikonsep/deploykit/internal/models"
)

// ErrInvalidCredentials hides whether the user exists or the password
// was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines the user operations of the record store.
type UserRepository interface {
	// RegisterUser saves a new user and returns its uid.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername returns a user by handle.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Subscriptions provisions the default subscription a new account gets.
type Subscriptions interface {
	CreateInitial(ctx context.Context, userUID string) (int, error)
}

// Service handles registration, login and JWT validation.
type Service struct {
	users    UserRepository
	subs     Subscriptions
	jwtMaker jwt.Maker
}

// New creates an auth Service.
func New(users UserRepository, subs Subscriptions, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		subs:     subs,
		jwtMaker: jwtMaker,
	}
}

// Register creates a user with a hashed password and the default "user"
// role, and opens the inactive starter subscription every fresh account
// starts with. Returns the new uid.
func (s *Service) Register(ctx context.Context, username, email, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}

	user := models.User{
		UID:          uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleUser,
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", err
	}

	if _, err := s.subs.CreateInitial(ctx, uid); err != nil {
		return "", err
	}
	return uid, nil
}

// Login verifies the password and issues a JWT carrying the username,
// role and uid.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken parses and verifies a JWT, returning its claims.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}
