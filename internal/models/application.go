package models

import "time"

// Application statuses.
const (
	ApplicationActive  = "active"
	ApplicationStopped = "stopped"
	ApplicationExpired = "expired"
)

// Application is a deployable unit the remote host manages under the
// user's namespace. Name doubles as the remote host's app identifier, so
// it must be unique across all users, not merely per owner.
type Application struct {
	ID        int       `json:"id"`
	UserUID   string    `json:"user_uid"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // active, stopped or expired
	CreatedAt time.Time `json:"created_at"`
}

// ApplicationRequest is the JSON payload for creating an application.
type ApplicationRequest struct {
	Name string `json:"name" validate:"required,hostname_rfc1123"`
}

// RunRequest is the JSON payload for an arbitrary remote command.
type RunRequest struct {
	Args []string `json:"args" validate:"required,min=1,dive,required"`
}

// DeployRequest is the JSON payload for initiating a deployment.
type DeployRequest struct {
	Project     string `json:"project" validate:"required,hostname_rfc1123"`
	Environment string `json:"environment,omitempty" validate:"omitempty,alphanum"`
}
