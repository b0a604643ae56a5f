package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/model"
)

func validInput() model.CreateSubscriptionInput {
	return model.CreateSubscriptionInput{
		Name:        "Netflix",
		Price:       decimal.RequireFromString("15.99"),
		Currency:    model.USD,
		RenewalDate: model.Date{Year: 2025, Month: time.May, Day: 1},
		Category:    model.CategoryStreaming,
	}
}

func TestCreateInput_OK(t *testing.T) {
	t.Parallel()
	require.NoError(t, CreateInput(validInput()))

	in := validInput()
	in.Category = ""
	require.NoError(t, CreateInput(in))
}

func TestCreateInput_FieldErrors(t *testing.T) {
	t.Parallel()

	in := validInput()
	in.Name = "   "
	in.Price = decimal.Zero
	in.Currency = "GBP"
	in.RenewalDate = model.Date{}
	in.Category = "pets"

	err := CreateInput(in)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrValidation))

	var ve *Error
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "is required", ve.Fields["name"])
	require.Equal(t, "must be greater than 0", ve.Fields["price"])
	require.Contains(t, ve.Fields["currency"], "must be one of")
	require.Equal(t, "is required", ve.Fields["renewal_date"])
	require.Contains(t, ve.Fields, "category")
}

func TestCreateInput_NegativePrice(t *testing.T) {
	t.Parallel()

	in := validInput()
	in.Price = decimal.RequireFromString("-1")
	err := CreateInput(in)
	var ve *Error
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Fields, 1)
}

func TestPatch(t *testing.T) {
	t.Parallel()

	require.NoError(t, Patch(model.SubscriptionPatch{}))

	blank := ""
	zero := decimal.Zero
	err := Patch(model.SubscriptionPatch{Name: &blank, Price: &zero})
	var ve *Error
	require.True(t, errors.As(err, &ve))
	require.Contains(t, ve.Fields, "name")
	require.Contains(t, ve.Fields, "price")

	ok := decimal.RequireFromString("3.5")
	require.NoError(t, Patch(model.SubscriptionPatch{Price: &ok}))
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	require.NoError(t, Credentials(model.Credentials{Email: "a@b.io", Password: "12345678"}))

	err := Credentials(model.Credentials{Email: "nope", Password: "short"})
	var ve *Error
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "is not a valid email", ve.Fields["email"])
	require.Equal(t, "must be at least 8 characters", ve.Fields["password"])
	require.Contains(t, err.Error(), "validation: email:")
}
