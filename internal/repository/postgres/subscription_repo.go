package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/model"
)

// SubscriptionRepo implements SubscriptionRepository using PostgreSQL.
// Prices travel as text so no precision is lost on either side.
type SubscriptionRepo struct{ db *DB }

// NewSubscriptionRepo constructs a subscription repository.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

const subCols = `id, user_id, name, price::text, currency, renewal_date, category, notes, is_active, reminder_days, created_at, updated_at`

// Insert stores a new row under a fresh id.
func (r *SubscriptionRepo) Insert(ctx context.Context, userID uuid.UUID, sub model.Subscription) (model.Subscription, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Subscription{}, err
	}
	const q = `
INSERT INTO subscriptions (id, user_id, name, price, currency, renewal_date, category, notes, is_active, reminder_days)
VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8, $9, $10)
RETURNING ` + subCols
	row := r.db.Pool.QueryRow(ctx, q,
		id, userID, sub.Name, sub.Price.String(), string(sub.Currency), sub.RenewalDate.UTC(),
		string(sub.Category.OrDefault()), sub.Notes, sub.IsActive, toInt32s(sub.ReminderDays),
	)
	return scanSubscription(row)
}

// Update locks the row, applies patch and writes every mutable column back.
func (r *SubscriptionRepo) Update(
	ctx context.Context, userID, id uuid.UUID, patch model.SubscriptionPatch,
) (out model.Subscription, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.Subscription{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const sel = `SELECT ` + subCols + ` FROM subscriptions WHERE id=$1 AND user_id=$2 FOR UPDATE`
	cur, err := scanSubscription(tx.QueryRow(ctx, sel, id, userID))
	if err != nil {
		return model.Subscription{}, err
	}
	next := patch.Apply(cur)

	const upd = `
UPDATE subscriptions
SET name=$3, price=$4::text::numeric, currency=$5, renewal_date=$6, category=$7, notes=$8, is_active=$9, updated_at=now()
WHERE id=$1 AND user_id=$2
RETURNING ` + subCols
	return scanSubscription(tx.QueryRow(ctx, upd,
		id, userID, next.Name, next.Price.String(), string(next.Currency), next.RenewalDate.UTC(),
		string(next.Category), next.Notes, next.IsActive,
	))
}

// Delete removes a row.
func (r *SubscriptionRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM subscriptions WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListByUser returns the rows of a user, soonest renewal first.
func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error) {
	const q = `SELECT ` + subCols + ` FROM subscriptions WHERE user_id=$1 ORDER BY renewal_date, created_at`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Subscription, 0, 16)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubscription(row pgx.Row) (model.Subscription, error) {
	var (
		sub          model.Subscription
		id, userID   uuid.UUID
		price        string
		currency     string
		renewal      time.Time
		category     string
		reminderDays []int32
	)
	err := row.Scan(&id, &userID, &sub.Name, &price, &currency, &renewal, &category,
		&sub.Notes, &sub.IsActive, &reminderDays, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Subscription{}, errs.ErrNotFound
		}
		return model.Subscription{}, err
	}
	if sub.Price, err = decimal.NewFromString(price); err != nil {
		return model.Subscription{}, err
	}
	sub.ID = model.RemoteID(id)
	sub.UserID = userID.String()
	sub.Currency = model.Currency(currency)
	sub.RenewalDate = model.DateOf(renewal)
	sub.Category = model.Category(category).OrDefault()
	sub.ReminderDays = make([]int, len(reminderDays))
	for i, d := range reminderDays {
		sub.ReminderDays[i] = int(d)
	}
	return sub, nil
}

func toInt32s(in []int) []int32 {
	if in == nil {
		in = model.DefaultReminderDays
	}
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}
