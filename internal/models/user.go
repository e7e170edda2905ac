// Package models contains the domain structures shared between the
// business logic and the storage layer, together with helper types for
// data arriving from external sources (JSON requests).
package models

import "time"

// Role values carried in the JWT and persisted on the user row.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account of the control plane.
type User struct {
	UID          string    `json:"uid"`      // Unique identifier (uuid)
	Username     string    `json:"username"` // Unique handle
	Email        string    `json:"email"`    // Unique contact address
	PasswordHash string    `json:"-"`        // bcrypt hash, never serialized
	Role         string    `json:"role"`     // "user" or "admin"
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the JSON payload for account registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the JSON payload for authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
