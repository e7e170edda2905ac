// Package payment contains the business logic for bank-transfer claims
// and their administrative verification, which is the sole trigger for
// subscription activation.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solusikonsep/deploykit/internal/models"
	"github.com/solusikonsep/deploykit/internal/storage"
)

var (
	// ErrNoSubscription means the user has no subscription record to
	// attach a payment to.
	ErrNoSubscription = errors.New("no subscription found for user")
	// ErrNotFound means the payment does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrAlreadyDecided means the payment was already verified or
	// rejected; decisions are immutable.
	ErrAlreadyDecided = errors.New("payment already decided")
)

// Repository defines the payment operations of the record store.
type Repository interface {
	CreatePayment(ctx context.Context, p models.Payment) (int, error)
	ListPaymentsByUser(ctx context.Context, userUID string) ([]*models.Payment, error)
	ListPendingPayments(ctx context.Context) ([]*models.PendingPayment, error)
	GetPaymentByID(ctx context.Context, id int) (*models.Payment, error)
	DecidePayment(ctx context.Context, id int, status, verifiedBy, notes string) (int, error)
}

// Subscriptions is the slice of the subscription service payments need:
// finding the record to bill and activating it once verified.
type Subscriptions interface {
	Current(ctx context.Context, userUID string) (*models.Subscription, error)
	Activate(ctx context.Context, subscriptionID int, userUID string) error
}

// Service implements the payment flow.
type Service struct {
	repo Repository
	subs Subscriptions
	log  *slog.Logger
}

// New creates a payment Service.
func New(repo Repository, subs Subscriptions, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		subs: subs,
		log:  log,
	}
}

// Create records a bank-transfer claim against the user's current
// subscription and returns the payment ID.
func (s *Service) Create(ctx context.Context, userUID string, req models.PaymentRequest) (int, error) {
	sub, err := s.subs.Current(ctx, userUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNoSubscription
		}
		return 0, err
	}

	p := models.Payment{
		UserUID:           userUID,
		SubscriptionID:    sub.ID,
		Amount:            req.Amount,
		Method:            req.Method,
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
	}
	if req.Reference != "" {
		p.Reference = &req.Reference
	}
	if req.Notes != "" {
		p.Notes = &req.Notes
	}

	id, err := s.repo.CreatePayment(ctx, p)
	if err != nil {
		return 0, err
	}

	s.log.Info("created payment claim",
		slog.Int("id", id),
		slog.Int("subscription_id", sub.ID),
		slog.Float64("amount", req.Amount))
	return id, nil
}

// ListByUser returns the user's payments, newest first.
func (s *Service) ListByUser(ctx context.Context, userUID string) ([]*models.Payment, error) {
	return s.repo.ListPaymentsByUser(ctx, userUID)
}

// ListPending returns the admin verification queue, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.PendingPayment, error) {
	return s.repo.ListPendingPayments(ctx)
}

// GetByID returns a single payment for admin inspection.
func (s *Service) GetByID(ctx context.Context, id int) (*models.Payment, error) {
	p, err := s.repo.GetPaymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Verify records the admin decision on a pending payment. A verified
// decision activates the linked subscription; a rejected one only closes
// the claim. Once decided a payment cannot be re-decided.
func (s *Service) Verify(ctx context.Context, paymentID int, verifier, status, notes string) error {
	if status != models.PaymentVerified && status != models.PaymentRejected {
		return fmt.Errorf("invalid verification status: %s", status)
	}

	p, err := s.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	count, err := s.repo.DecidePayment(ctx, paymentID, status, verifier, notes)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrAlreadyDecided
	}

	s.log.Info("payment decided",
		slog.Int("id", paymentID),
		slog.String("status", status),
		slog.String("verified_by", verifier))

	if status == models.PaymentVerified {
		if err := s.subs.Activate(ctx, p.SubscriptionID, p.UserUID); err != nil {
			return fmt.Errorf("payment verified but activation failed: %w", err)
		}
	}
	return nil
}
