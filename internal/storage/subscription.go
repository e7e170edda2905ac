package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solusikonsep/deploykit/internal/models"
)

// CreateSubscription inserts a new subscription row and returns its ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, plan, status, start_date)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		sub.UserUID, sub.Plan, sub.Status, sub.StartDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// CurrentSubscription returns the most recently created subscription of a
// user. Currency is decided by creation order, not by a uniqueness
// constraint: renewal and upgrade keep history as additional rows.
func (s *Storage) CurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.CurrentSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan, status, start_date, end_date, created_at
			  FROM subscriptions
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT 1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.Subscription
	if err := row.Scan(&result.ID, &result.UserUID, &result.Plan, &result.Status,
		&result.StartDate, &result.EndDate, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// ActivateSubscription marks a subscription active with the given paid-
// through date and returns the number of rows changed.
func (s *Storage) ActivateSubscription(ctx context.Context, id int, endDate time.Time) (int, error) {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, end_date = $2, updated_at = now()
			  WHERE id = $3`
	result, err := s.DB.ExecContext(ctx, query, models.SubscriptionActive, endDate, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExpireOverdueSubscriptions flips every active subscription whose paid-
// through date is before now to expired and returns the uids of affected
// users. Already-expired rows are untouched, so repeated sweeps are
// no-ops.
func (s *Storage) ExpireOverdueSubscriptions(ctx context.Context, now time.Time) ([]string, error) {
	const op = "storage.ExpireOverdueSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, updated_at = now()
			  WHERE status = $2 AND end_date IS NOT NULL AND end_date < $3
			  RETURNING user_uid`
	rows, err := s.DB.QueryContext(ctx, query,
		models.SubscriptionExpired, models.SubscriptionActive, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var userUIDs []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		userUIDs = append(userUIDs, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return userUIDs, nil
}
