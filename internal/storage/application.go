package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/solusikonsep/deploykit/internal/models"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// CreateApplication inserts a new active application row and returns its
// ID. A duplicate name, regardless of owner, maps to ErrNameTaken.
func (s *Storage) CreateApplication(ctx context.Context, userUID, name string) (int, error) {
	const op = "storage.CreateApplication"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO applications (user_uid, name, status)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query, userUID, name, models.ApplicationActive).Scan(&newID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, ErrNameTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListApplicationsByUser returns all applications of a user, newest first.
func (s *Storage) ListApplicationsByUser(ctx context.Context, userUID string) ([]*models.Application, error) {
	const op = "storage.ListApplicationsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, status, created_at
			  FROM applications
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Application
	for rows.Next() {
		var item models.Application
		if err := rows.Scan(&item.ID, &item.UserUID, &item.Name, &item.Status,
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

// GetApplicationByID returns a single application row.
func (s *Storage) GetApplicationByID(ctx context.Context, id int) (*models.Application, error) {
	const op = "storage.GetApplicationByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, status, created_at
			  FROM applications WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Application
	if err := row.Scan(&result.ID, &result.UserUID, &result.Name, &result.Status,
		&result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// CountChargeableApplications counts a user's non-expired applications,
// i.e. the ones that count against the plan quota.
func (s *Storage) CountChargeableApplications(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountChargeableApplications"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM applications
			  WHERE user_uid = $1 AND status != $2`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID, models.ApplicationExpired).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// UpdateApplicationStatus performs an optimistic status transition: the
// row only changes when it is still in the expected state. Zero rows
// affected means a concurrent request won the race or the transition is
// not valid for the row's current state.
func (s *Storage) UpdateApplicationStatus(ctx context.Context, id int, from, to string) (int, error) {
	const op = "storage.UpdateApplicationStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE applications
			  SET status = $1, updated_at = now()
			  WHERE id = $2 AND status = $3`
	result, err := s.DB.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExpireActiveApplications flips every active application of a user to
// expired and returns the affected names. Stopped applications stay
// stopped; expired ones are already terminal.
func (s *Storage) ExpireActiveApplications(ctx context.Context, userUID string) ([]string, error) {
	const op = "storage.ExpireActiveApplications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE applications
			  SET status = $1, updated_at = now()
			  WHERE user_uid = $2 AND status = $3
			  RETURNING name`
	rows, err := s.DB.QueryContext(ctx, query,
		models.ApplicationExpired, userUID, models.ApplicationActive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return names, nil
}
