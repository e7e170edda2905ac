package models

import "time"

// Plan tiers. Each tier grants a fixed application quota.
const (
	PlanStarter  = "starter"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Subscription statuses.
const (
	SubscriptionPendingPayment = "pending_payment"
	SubscriptionInactive       = "inactive"
	SubscriptionActive         = "active"
	SubscriptionExpired        = "expired"
)

// Subscription is an entitlement record. A user accumulates subscription
// rows over time (renewal inserts a fresh row); the current one for
// entitlement purposes is the most recently created.
type Subscription struct {
	ID        int        `json:"id"`
	UserUID   string     `json:"user_uid"`
	Plan      string     `json:"plan"`       // starter, pro or business
	Status    string     `json:"status"`     // pending_payment, inactive, active or expired
	StartDate time.Time  `json:"start_date"` // When the record was opened
	EndDate   *time.Time `json:"end_date"`   // Paid-through date, nil until activated
	CreatedAt time.Time  `json:"created_at"`
}

// RenewRequest is the JSON payload for opening a fresh subscription record.
type RenewRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter pro business"`
}
