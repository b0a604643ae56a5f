// Package reminder defines the renewal reminder contract. Delivery is not
// implemented; Noop records the calls in the log.
package reminder

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/subtrack/internal/model"
)

// Scheduler schedules and cancels renewal reminders for a subscription.
type Scheduler interface {
	Schedule(ctx context.Context, sub model.Subscription, offsets []int) error
	Cancel(ctx context.Context, id model.SubscriptionID) error
}

// Noop is an inert Scheduler.
type Noop struct {
	log *zap.Logger
}

// NewNoop returns an inert scheduler that logs at debug level.
func NewNoop(log *zap.Logger) *Noop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Noop{log: log}
}

func (n *Noop) Schedule(_ context.Context, sub model.Subscription, offsets []int) error {
	n.log.Debug("reminders scheduled",
		zap.Stringer("id", sub.ID),
		zap.Stringer("renewal", sub.RenewalDate),
		zap.Ints("offsets", offsets),
	)
	return nil
}

func (n *Noop) Cancel(_ context.Context, id model.SubscriptionID) error {
	n.log.Debug("reminders cancelled", zap.Stringer("id", id))
	return nil
}
