// Package money formats and parses amounts in the supported currencies.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/and161185/subtrack/internal/model"
)

// Info describes how a currency is displayed.
type Info struct {
	Code        model.Currency
	Symbol      string
	Name        string
	SymbolAfter bool
	Locale      string
}

var table = map[model.Currency]Info{
	model.USD: {Code: model.USD, Symbol: "$", Name: "US Dollar", Locale: "en-US"},
	model.EUR: {Code: model.EUR, Symbol: "€", Name: "Euro", SymbolAfter: true, Locale: "fr-FR"},
	model.MAD: {Code: model.MAD, Symbol: "DH", Name: "Moroccan Dirham", SymbolAfter: true, Locale: "ar-MA"},
}

// Lookup returns display info for code.
func Lookup(code model.Currency) (Info, bool) {
	i, ok := table[code]
	return i, ok
}

// All returns every supported currency in display order.
func All() []Info {
	out := make([]Info, 0, len(model.Currencies))
	for _, c := range model.Currencies {
		out = append(out, table[c])
	}
	return out
}

type formatOpts struct {
	symbol   bool
	decimals int32
}

// Option tweaks Format.
type Option func(*formatOpts)

// WithoutSymbol renders the bare number.
func WithoutSymbol() Option { return func(o *formatOpts) { o.symbol = false } }

// WithDecimals sets the number of fraction digits (default 2).
func WithDecimals(n int32) Option { return func(o *formatOpts) { o.decimals = n } }

// Format renders amount in code, e.g. "$9.99" or "9.99 €".
// Unknown codes fall back to USD.
func Format(amount decimal.Decimal, code model.Currency, opts ...Option) string {
	o := formatOpts{symbol: true, decimals: 2}
	for _, fn := range opts {
		fn(&o)
	}
	s := amount.StringFixed(o.decimals)
	if !o.symbol {
		return s
	}
	info, ok := table[code]
	if !ok {
		info = table[model.USD]
	}
	if info.SymbolAfter {
		return s + " " + info.Symbol
	}
	return info.Symbol + s
}

// Parse extracts an amount from user text. Everything except digits and '.'
// is dropped, then the longest leading number is taken; zero if none.
func Parse(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	end, dot, digits := 0, false, false
	for i, r := range cleaned {
		if r == '.' {
			if dot {
				break
			}
			dot = true
		} else {
			digits = true
		}
		end = i + 1
	}
	if !digits {
		return decimal.Zero
	}
	num := strings.TrimSuffix(cleaned[:end], ".")
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d
}
