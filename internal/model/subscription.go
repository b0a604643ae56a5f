package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO code from the fixed supported set.
type Currency string

// Supported currencies.
const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	MAD Currency = "MAD"
)

// Currencies lists every supported currency in display order.
var Currencies = []Currency{USD, EUR, MAD}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	for _, k := range Currencies {
		if c == k {
			return true
		}
	}
	return false
}

// Category is an optional subscription tag.
type Category string

// Subscription categories.
const (
	CategoryStreaming    Category = "streaming"
	CategoryProductivity Category = "productivity"
	CategoryCloud        Category = "cloud"
	CategoryDesign       Category = "design"
	CategoryDevelopment  Category = "development"
	CategoryFinance      Category = "finance"
	CategoryMusic        Category = "music"
	CategoryGaming       Category = "gaming"
	CategoryFitness      Category = "fitness"
	CategoryOther        Category = "other"
)

// Categories lists every category.
var Categories = []Category{
	CategoryStreaming, CategoryProductivity, CategoryCloud, CategoryDesign, CategoryDevelopment,
	CategoryFinance, CategoryMusic, CategoryGaming, CategoryFitness, CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// OrDefault returns CategoryOther for an empty category.
func (c Category) OrDefault() Category {
	if c == "" {
		return CategoryOther
	}
	return c
}

// DefaultReminderDays are the day offsets before renewal assigned to new records.
var DefaultReminderDays = []int{7, 1}

// Subscription is a recurring-payment record.
type Subscription struct {
	ID           SubscriptionID  `json:"id"`
	UserID       string          `json:"user_id,omitempty"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"` // monthly amount
	Currency     Currency        `json:"currency"`
	RenewalDate  Date            `json:"renewal_date"`
	Category     Category        `json:"category"`
	Notes        string          `json:"notes,omitempty"`
	IsActive     bool            `json:"is_active"`
	ReminderDays []int           `json:"reminder_days"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateSubscriptionInput carries the user-supplied fields of a new record.
type CreateSubscriptionInput struct {
	Name        string          `json:"name" validate:"required,notblank,max=100"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Currency    Currency        `json:"currency" validate:"required,oneof=USD EUR MAD"`
	RenewalDate Date            `json:"renewal_date" validate:"required"`
	Category    Category        `json:"category,omitempty" validate:"omitempty,oneof=streaming productivity cloud design development finance music gaming fitness other"`
	Notes       string          `json:"notes,omitempty" validate:"max=1000"`
}

// SubscriptionPatch is a partial update; nil fields are left untouched.
type SubscriptionPatch struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gt=0"`
	Currency    *Currency        `json:"currency,omitempty" validate:"omitempty,oneof=USD EUR MAD"`
	RenewalDate *Date            `json:"renewal_date,omitempty"`
	Category    *Category        `json:"category,omitempty" validate:"omitempty,oneof=streaming productivity cloud design development finance music gaming fitness other"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SubscriptionPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.Currency == nil && p.RenewalDate == nil &&
		p.Category == nil && p.Notes == nil && p.IsActive == nil
}

// UpdateSubscriptionInput addresses a patch to one record.
type UpdateSubscriptionInput struct {
	ID SubscriptionID
	SubscriptionPatch
}

// Apply returns a copy of s with the patch applied.
func (p SubscriptionPatch) Apply(s Subscription) Subscription {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.RenewalDate != nil {
		s.RenewalDate = *p.RenewalDate
	}
	if p.Category != nil {
		s.Category = p.Category.OrDefault()
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	return s
}

// Clone returns a deep copy (ReminderDays is not shared).
func (s Subscription) Clone() Subscription {
	s.ReminderDays = append([]int(nil), s.ReminderDays...)
	return s
}
