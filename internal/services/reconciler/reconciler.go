// Package reconciler implements the recurring sweep that expires overdue
// subscriptions and cascades the expiry onto applications. Each firing
// is idempotent, so a failed sweep simply waits for the next one.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/solusikonsep/deploykit/internal/lib/rabbitmq"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
)

// SubscriptionExpirer is the subscription-side sweep operation.
type SubscriptionExpirer interface {
	ExpireOverdue(ctx context.Context) ([]string, error)
}

// ApplicationExpirer is the application-side cascade operation.
type ApplicationExpirer interface {
	CascadeExpire(ctx context.Context, userUID string) ([]string, error)
}

// SubscriptionExpiredEvent is published per affected user.
type SubscriptionExpiredEvent struct {
	UserUID   string    `json:"user_uid"`
	ExpiredAt time.Time `json:"expired_at"`
}

// ApplicationExpiredEvent is published per cascaded application. The
// sweep does not stop the remote workload, so operators consume these to
// reclaim anything still running at the host.
type ApplicationExpiredEvent struct {
	UserUID   string    `json:"user_uid"`
	Name      string    `json:"name"`
	ExpiredAt time.Time `json:"expired_at"`
}

// Service runs the reconciliation sweep.
type Service struct {
	subs     SubscriptionExpirer
	apps     ApplicationExpirer
	interval time.Duration
	log      *slog.Logger
}

// New creates a reconciler Service firing at the given interval.
func New(subs SubscriptionExpirer, apps ApplicationExpirer, interval time.Duration, log *slog.Logger) *Service {
	return &Service{
		subs:     subs,
		apps:     apps,
		interval: interval,
		log:      log,
	}
}

// Run sweeps immediately, then on every tick until the context is
// cancelled. Errors are logged and never stop the loop.
func (s *Service) Run(ctx context.Context, channel *amqp.Channel) {
	s.Sweep(ctx, channel)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, channel)
		}
	}
}

// Sweep expires overdue subscriptions and cascades onto the affected
// users' applications. The cascade is bookkeeping only: the remote host
// is not contacted, the published events carry what an operator needs to
// follow up. A nil channel skips publishing.
func (s *Service) Sweep(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting subscription expiration sweep")

	userUIDs, err := s.subs.ExpireOverdue(ctx)
	if err != nil {
		s.log.Error("failed to expire overdue subscriptions", sl.Err(err))
		return
	}
	if len(userUIDs) == 0 {
		s.log.Info("no overdue subscriptions found")
		return
	}
	s.log.Info("expired subscriptions", slog.Int("users", len(userUIDs)))

	now := time.Now().UTC()
	for _, uid := range userUIDs {
		s.publish(channel, "subscription.expired", SubscriptionExpiredEvent{
			UserUID:   uid,
			ExpiredAt: now,
		})

		names, err := s.apps.CascadeExpire(ctx, uid)
		if err != nil {
			// The next firing retries; the subscription side is already
			// done and idempotent.
			s.log.Error("failed to cascade expiry onto applications",
				slog.String("user_uid", uid), sl.Err(err))
			continue
		}
		for _, name := range names {
			s.publish(channel, "application.expired", ApplicationExpiredEvent{
				UserUID:   uid,
				Name:      name,
				ExpiredAt: now,
			})
		}
	}

	s.log.Info("subscription expiration sweep completed")
}

func (s *Service) publish(channel *amqp.Channel, routingKey string, event any) {
	if channel == nil {
		return
	}
	if err := rabbitmq.PublishMessage(channel, rabbitmq.ExchangeLifecycle, routingKey, event); err != nil {
		s.log.Error("failed to publish lifecycle event",
			slog.String("routing_key", routingKey), sl.Err(err))
	}
}
