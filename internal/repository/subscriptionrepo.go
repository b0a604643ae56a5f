package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/subtrack/internal/model"
)

// SubscriptionRepository is the server-side "subscriptions" table. Every
// call is scoped to the owning user; rows of other users look absent.
type SubscriptionRepository interface {
	// Insert stores sub under a fresh id and returns the stored row.
	Insert(ctx context.Context, userID uuid.UUID, sub model.Subscription) (model.Subscription, error)
	// Update applies patch to a row and returns the result.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.SubscriptionPatch) (model.Subscription, error)
	// Delete removes a row.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// ListByUser returns every row of the user ordered by renewal date.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error)
}
