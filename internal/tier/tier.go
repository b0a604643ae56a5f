// Package tier implements Free/Pro feature gating.
package tier

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/and161185/subtrack/internal/model"
)

// Feature is a Pro-only capability.
type Feature string

// Gated features.
const (
	UnlimitedSubscriptions Feature = "unlimited_subscriptions"
	Reminders              Feature = "reminders"
	AllLanguages           Feature = "all_languages"
	AllCurrencies          Feature = "all_currencies"
	CSVExport              Feature = "csv_export"
)

// MaxFreeSubscriptions is the number of records a free user may keep.
// Adding is blocked once the count reaches it.
const MaxFreeSubscriptions = 3

// Limits describes what a tier allows.
type Limits struct {
	MaxSubscriptions int // 0 means unlimited
	Reminders        bool
	Export           bool
	Languages        []model.Language
	Currencies       []model.Currency
}

var (
	// Free is the default tier.
	Free = Limits{
		MaxSubscriptions: MaxFreeSubscriptions,
		Languages:        []model.Language{model.LangEnglish},
		Currencies:       []model.Currency{model.USD},
	}
	// Pro unlocks everything.
	Pro = Limits{
		Reminders:  true,
		Export:     true,
		Languages:  []model.Language{model.LangEnglish, model.LangFrench, model.LangArabic},
		Currencies: []model.Currency{model.USD, model.EUR, model.MAD},
	}
)

// ProPrice is the paywall pricing in USD.
var ProPrice = struct {
	Monthly  decimal.Decimal
	Yearly   decimal.Decimal
	Currency model.Currency
}{
	Monthly:  decimal.RequireFromString("4.99"),
	Yearly:   decimal.RequireFromString("49.99"),
	Currency: model.USD,
}

// For returns the limits of the tier selected by isPro.
func For(isPro bool) Limits {
	if isPro {
		return Pro
	}
	return Free
}

// HasReachedLimit reports whether a user holding count records may not add another.
func HasReachedLimit(count int, isPro bool) bool {
	if isPro {
		return false
	}
	return count >= MaxFreeSubscriptions
}

// CanAccessFeature reports whether f is available. Every feature is Pro-only.
func CanAccessFeature(f Feature, isPro bool) bool {
	return isPro
}

// AllowsLanguage reports whether the tier allows l.
func (l Limits) AllowsLanguage(lang model.Language) bool {
	return slices.Contains(l.Languages, lang)
}

// AllowsCurrency reports whether the tier allows c.
func (l Limits) AllowsCurrency(c model.Currency) bool {
	return slices.Contains(l.Currencies, c)
}
