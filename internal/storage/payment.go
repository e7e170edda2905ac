package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/solusikonsep/deploykit/internal/models"
)

// CreatePayment inserts a bank-transfer claim and returns its ID.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (int, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_uid, subscription_id, amount, payment_method,
			      bank_account_name, bank_account_number, payment_reference, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		p.UserUID, p.SubscriptionID, p.Amount, p.Method,
		p.BankAccountName, p.BankAccountNumber, p.Reference, p.Notes).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPaymentsByUser returns all payments of a user, newest first.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userUID string) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, subscription_id, amount, payment_method,
			      bank_account_name, bank_account_number, payment_reference,
			      verification_status, verified_at, verified_by, notes, created_at
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Payment
	for rows.Next() {
		var item models.Payment
		if err := rows.Scan(&item.ID, &item.UserUID, &item.SubscriptionID, &item.Amount,
			&item.Method, &item.BankAccountName, &item.BankAccountNumber, &item.Reference,
			&item.VerificationStatus, &item.VerifiedAt, &item.VerifiedBy, &item.Notes,
			&item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListPendingPayments returns pending rows joined with the submitting
// user, oldest first, for the admin verification queue.
func (s *Storage) ListPendingPayments(ctx context.Context) ([]*models.PendingPayment, error) {
	const op = "storage.ListPendingPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT p.id, p.user_uid, p.subscription_id, p.amount, p.payment_method,
			      p.bank_account_name, p.bank_account_number, p.payment_reference,
			      p.notes, p.created_at, u.username, u.email
			  FROM payments p
			  JOIN users u ON p.user_uid = u.uid
			  WHERE p.verification_status = $1
			  ORDER BY p.created_at ASC`
	rows, err := s.DB.QueryContext(ctx, query, models.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.PendingPayment
	for rows.Next() {
		var item models.PendingPayment
		item.VerificationStatus = models.PaymentPending
		if err := rows.Scan(&item.ID, &item.UserUID, &item.SubscriptionID, &item.Amount,
			&item.Method, &item.BankAccountName, &item.BankAccountNumber, &item.Reference,
			&item.Notes, &item.CreatedAt, &item.Username, &item.Email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPaymentByID returns a single payment row.
func (s *Storage) GetPaymentByID(ctx context.Context, id int) (*models.Payment, error) {
	const op = "storage.GetPaymentByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, subscription_id, amount, payment_method,
			      bank_account_name, bank_account_number, payment_reference,
			      verification_status, verified_at, verified_by, notes, created_at
			  FROM payments WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Payment
	if err := row.Scan(&result.ID, &result.UserUID, &result.SubscriptionID, &result.Amount,
		&result.Method, &result.BankAccountName, &result.BankAccountNumber, &result.Reference,
		&result.VerificationStatus, &result.VerifiedAt, &result.VerifiedBy, &result.Notes,
		&result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// DecidePayment records the admin verification decision. The WHERE clause
// only matches pending rows, so a decided payment stays immutable; zero
// rows affected means the payment was already decided or does not exist.
func (s *Storage) DecidePayment(ctx context.Context, id int, status, verifiedBy, notes string) (int, error) {
	const op = "storage.DecidePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET verification_status = $1, verified_at = now(), verified_by = $2,
			      notes = COALESCE(NULLIF($3, ''), notes), updated_at = now()
			  WHERE id = $4 AND verification_status = $5`
	result, err := s.DB.ExecContext(ctx, query, status, verifiedBy, notes, id, models.PaymentPending)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
