package models

import "time"

// Payment verification statuses.
const (
	PaymentPending  = "pending"
	PaymentVerified = "verified"
	PaymentRejected = "rejected"
)

// Payment is a claimed bank-transfer proof submitted by a user. It is
// mutated only by an administrative verification decision, which is the
// sole trigger for subscription activation.
type Payment struct {
	ID                 int        `json:"id"`
	UserUID            string     `json:"user_uid"`
	SubscriptionID     int        `json:"subscription_id"`
	Amount             float64    `json:"amount"`
	Method             string     `json:"payment_method"`
	BankAccountName    string     `json:"bank_account_name"`
	BankAccountNumber  string     `json:"bank_account_number"`
	Reference          *string    `json:"payment_reference,omitempty"` // Optional transfer reference
	VerificationStatus string     `json:"verification_status"`         // pending, verified or rejected
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`       // Set when the decision is made
	VerifiedBy         *string    `json:"verified_by,omitempty"`       // Username of the verifying admin
	Notes              *string    `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// PendingPayment is a pending row joined with the submitting user, as
// shown in the admin verification queue.
type PendingPayment struct {
	Payment
	Username string `json:"username"`
	Email    string `json:"email"`
}

// PaymentRequest is the JSON payload for submitting a bank-transfer claim.
type PaymentRequest struct {
	Amount            float64 `json:"amount" validate:"required,gt=0"`
	Method            string  `json:"payment_method" validate:"required"`
	BankAccountName   string  `json:"bank_account_name" validate:"required"`
	BankAccountNumber string  `json:"bank_account_number" validate:"required,numeric"`
	Reference         string  `json:"payment_reference,omitempty" validate:"omitempty"`
	Notes             string  `json:"notes,omitempty" validate:"omitempty"`
}

// VerifyRequest is the JSON payload for the admin verification decision.
type VerifyRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected"`
	Notes  string `json:"notes,omitempty" validate:"omitempty"`
}
