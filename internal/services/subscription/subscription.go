// Package subscription contains the business logic for the subscription
// lifecycle: entitlement lookup, plan quotas, activation on verified
// payment and the batch expiry sweep.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solusikonsep/deploykit/internal/models"
)

// activationPeriodMonths is how long a verified payment entitles a
// subscription for.
const activationPeriodMonths = 3

// cacheTTL bounds how stale an entitlement read may be.
const cacheTTL = 5 * time.Minute

// Repository defines the subscription operations of the record store.
type Repository interface {
	// CreateSubscription inserts a new record and returns its ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
	// CurrentSubscription returns the most recently created record of a user.
	CurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	// ActivateSubscription marks a record active with a paid-through date.
	ActivateSubscription(ctx context.Context, id int, endDate time.Time) (int, error)
	// ExpireOverdueSubscriptions expires overdue active records and
	// returns the affected user uids.
	ExpireOverdueSubscriptions(ctx context.Context, now time.Time) ([]string, error)
}

// Cache describes the entitlement cache.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service implements the subscription lifecycle.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New creates a subscription Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Quota maps a plan tier to its application quota. Unknown tiers map to
// zero, so an unrecognized plan cannot create anything.
func Quota(plan string) int {
	switch plan {
	case models.PlanStarter:
		return 2
	case models.PlanPro:
		return 5
	case models.PlanBusiness:
		return 10
	default:
		return 0
	}
}

// Quota exposes the plan quota mapping on the service for callers that
// hold it as an interface.
func (s *Service) Quota(plan string) int {
	return Quota(plan)
}

// ActiveNow reports whether a subscription entitles its owner right now.
// A record that is still marked active but past its paid-through date is
// treated as expired without waiting for the sweep.
func ActiveNow(sub *models.Subscription) bool {
	if sub == nil || sub.Status != models.SubscriptionActive {
		return false
	}
	if sub.EndDate != nil && sub.EndDate.Before(time.Now()) {
		return false
	}
	return true
}

func cacheKey(userUID string) string {
	return fmt.Sprintf("subscription:current:%s", userUID)
}

// Current returns the user's current subscription, cache-aside.
func (s *Service) Current(ctx context.Context, userUID string) (*models.Subscription, error) {
	var result *models.Subscription
	key := cacheKey(userUID)
	found, err := s.cache.Get(key, &result)
	if err != nil {
		s.log.Warn("entitlement cache read failed", slog.String("key", key), slog.Any("err", err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.CurrentSubscription(ctx, userUID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, result, cacheTTL); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), slog.Any("err", err))
	}
	return result, nil
}

// CreateInitial opens the default inactive starter record a fresh
// account gets at registration.
func (s *Service) CreateInitial(ctx context.Context, userUID string) (int, error) {
	return s.create(ctx, userUID, models.PlanStarter)
}

// Renew opens a fresh inactive record on the chosen plan. History is
// preserved as older rows; the new record becomes current by creation
// order and follows the usual payment-then-activation path.
func (s *Service) Renew(ctx context.Context, userUID, plan string) (int, error) {
	if Quota(plan) == 0 {
		return 0, fmt.Errorf("unknown plan: %s", plan)
	}
	return s.create(ctx, userUID, plan)
}

func (s *Service) create(ctx context.Context, userUID, plan string) (int, error) {
	sub := models.Subscription{
		UserUID:   userUID,
		Plan:      plan,
		Status:    models.SubscriptionInactive,
		StartDate: time.Now().UTC(),
	}
	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Invalidate(cacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate entitlement cache", slog.Any("err", err))
	}
	s.log.Info("created subscription", slog.Int("id", id), slog.String("plan", plan))
	return id, nil
}

// Activate marks a subscription active and paid through three months
// from now. It is triggered exclusively by payment verification.
func (s *Service) Activate(ctx context.Context, subscriptionID int, userUID string) error {
	endDate := time.Now().UTC().AddDate(0, activationPeriodMonths, 0)
	count, err := s.repo.ActivateSubscription(ctx, subscriptionID, endDate)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("subscription %d not found", subscriptionID)
	}

	if err := s.cache.Invalidate(cacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate entitlement cache", slog.Any("err", err))
	}
	s.log.Info("activated subscription",
		slog.Int("id", subscriptionID),
		slog.Time("end_date", endDate))
	return nil
}

// ExpireOverdue flips every active subscription past its paid-through
// date to expired and returns the affected user uids. Pure function of
// current time; running it twice in a row changes nothing the second
// time.
func (s *Service) ExpireOverdue(ctx context.Context) ([]string, error) {
	userUIDs, err := s.repo.ExpireOverdueSubscriptions(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	for _, uid := range userUIDs {
		if err := s.cache.Invalidate(cacheKey(uid)); err != nil {
			s.log.Warn("failed to invalidate entitlement cache",
				slog.String("user_uid", uid), slog.Any("err", err))
		}
	}
	return userUIDs, nil
}
