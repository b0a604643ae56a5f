// Package validate checks user input before it reaches the stores.
package validate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/model"
)

// Error carries one message per offending field (keyed by json name).
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, errs.ErrValidation) hold.
func (e *Error) Is(target error) bool { return target == errs.ErrValidation }

var v = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New(validator.WithRequiredStructEnabled())
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	vv.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		fl, _ := d.Float64()
		return fl
	}, decimal.Decimal{})
	vv.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(model.Date)
		if !ok {
			return nil
		}
		return d.String()
	}, model.Date{})
	_ = vv.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return vv
}

// Struct validates s by its `validate` tags.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate: %w", err)
	}
	out := &Error{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		if _, dup := out.Fields[fe.Field()]; dup {
			continue
		}
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

// CreateInput validates a new subscription form.
func CreateInput(in model.CreateSubscriptionInput) error { return Struct(in) }

// Patch validates a partial update.
func Patch(p model.SubscriptionPatch) error { return Struct(p) }

// Credentials validates a sign-up / sign-in form.
func Credentials(c model.Credentials) error { return Struct(c) }

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "is not a valid email"
	default:
		return "is invalid"
	}
}
