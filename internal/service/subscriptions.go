package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/repository"
	"github.com/and161185/subtrack/internal/validate"
)

// SubscriptionService defines operations over a user's subscription rows.
type SubscriptionService interface {
	// Create validates and stores a new row.
	Create(ctx context.Context, userID uuid.UUID, sub model.Subscription) (model.Subscription, error)
	// Update validates and applies a patch.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.SubscriptionPatch) (model.Subscription, error)
	// Delete removes a row.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// List returns all rows ordered by renewal date.
	List(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error)
}

type SubscriptionServiceImpl struct {
	repo    repository.SubscriptionRepository
	maxRows int
}

// NewSubscriptionService constructs SubscriptionService with a per-user row cap.
func NewSubscriptionService(repo repository.SubscriptionRepository, maxRows int) *SubscriptionServiceImpl {
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &SubscriptionServiceImpl{repo: repo, maxRows: maxRows}
}

var errEmptyUser = fmt.Errorf("%w: empty user id", errs.ErrValidation)

// Create validates the user-supplied fields and delegates to the repository.
// Missing reminder offsets get the defaults.
func (s *SubscriptionServiceImpl) Create(ctx context.Context, userID uuid.UUID, sub model.Subscription) (model.Subscription, error) {
	if userID == uuid.Nil {
		return model.Subscription{}, errEmptyUser
	}
	in := model.CreateSubscriptionInput{
		Name:        sub.Name,
		Price:       sub.Price,
		Currency:    sub.Currency,
		RenewalDate: sub.RenewalDate,
		Category:    sub.Category,
		Notes:       sub.Notes,
	}
	if err := validate.CreateInput(in); err != nil {
		return model.Subscription{}, err
	}
	for i, d := range sub.ReminderDays {
		if d < 0 || d > 365 {
			return model.Subscription{}, fmt.Errorf("%w: reminder_days[%d] out of range", errs.ErrValidation, i)
		}
	}
	if len(sub.ReminderDays) == 0 {
		sub.ReminderDays = append([]int(nil), model.DefaultReminderDays...)
	}

	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return model.Subscription{}, err
	}
	if len(rows) >= s.maxRows {
		return model.Subscription{}, fmt.Errorf("%w: too many subscriptions (%d)", errs.ErrValidation, s.maxRows)
	}
	return s.repo.Insert(ctx, userID, sub)
}

// Update validates the patch and delegates to the repository.
func (s *SubscriptionServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, patch model.SubscriptionPatch) (model.Subscription, error) {
	if userID == uuid.Nil {
		return model.Subscription{}, errEmptyUser
	}
	if id == uuid.Nil {
		return model.Subscription{}, fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	if err := validate.Patch(patch); err != nil {
		return model.Subscription{}, err
	}
	return s.repo.Update(ctx, userID, id, patch)
}

// Delete removes a row owned by userID.
func (s *SubscriptionServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	return s.repo.Delete(ctx, userID, id)
}

// List returns the user's rows.
func (s *SubscriptionServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error) {
	if userID == uuid.Nil {
		return nil, errEmptyUser
	}
	return s.repo.ListByUser(ctx, userID)
}
