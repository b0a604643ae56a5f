package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/money"
	"github.com/and161185/subtrack/internal/renewal"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	totalStyle  = lipgloss.NewStyle().Bold(true)

	badgeStyles = map[renewal.Status]lipgloss.Style{
		renewal.StatusActive:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		renewal.StatusExpiringSoon: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		renewal.StatusToday:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
		renewal.StatusExpired:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	badgeText = map[renewal.Status]string{
		renewal.StatusActive:       "active",
		renewal.StatusExpiringSoon: "soon",
		renewal.StatusToday:        "today",
		renewal.StatusExpired:      "expired",
	}
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func badge(s renewal.Status) string {
	return badgeStyles[s].Render(badgeText[s])
}

// daysText renders a day distance the way the dashboard does.
func daysText(n int) string {
	switch {
	case n == 0:
		return "today"
	case n == 1:
		return "tomorrow"
	case n > 1:
		return fmt.Sprintf("in %d days", n)
	case n == -1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", -n)
	}
}

// byRenewal orders records by renewal date, most urgent first; ties keep
// collection order.
func byRenewal(subs []model.Subscription) {
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].RenewalDate.Before(subs[j].RenewalDate) })
}

func renderTable(w io.Writer, subs []model.Subscription, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("NAME"),
		headerStyle.Render("PRICE"),
		headerStyle.Render("RENEWS"),
		headerStyle.Render("STATUS"),
		headerStyle.Render("CATEGORY"),
	)
	for _, s := range subs {
		status := renewal.StatusOf(s.RenewalDate, now)
		name := s.Name
		if !s.IsActive {
			name = mutedStyle.Render(name + " (paused)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\n",
			s.ID,
			name,
			money.Format(s.Price, s.Currency),
			s.RenewalDate,
			mutedStyle.Render("("+daysText(renewal.DaysUntil(s.RenewalDate, now))+")"),
			badge(status),
			s.Category.OrDefault(),
		)
	}
	return tw.Flush()
}

func renderTotals(w io.Writer, monthly decimal.Decimal, cur model.Currency) {
	fmt.Fprintf(w, "%s %s   %s %s\n",
		totalStyle.Render("Monthly:"), money.Format(monthly, cur),
		totalStyle.Render("Yearly:"), money.Format(monthly.Mul(decimal.NewFromInt(12)), cur),
	)
}

func renderSettings(w io.Writer, s model.Settings) error {
	plan := "free"
	if s.IsPro {
		plan = "pro"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"language", string(s.Language)},
		{"currency", string(s.Currency)},
		{"theme", string(s.Theme)},
		{"push", fmt.Sprint(s.PushNotifications)},
		{"email", fmt.Sprint(s.EmailNotifications)},
		{"plan", plan},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

// ---- input parsing ----

func parseCurrency(s string) (model.Currency, error) {
	c := model.Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown currency %q (want one of %v)", s, model.Currencies)
	}
	return c, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	p := money.Parse(s)
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("bad price %q", s)
	}
	return p, nil
}

func parseCategory(s string) (model.Category, error) {
	c := model.Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return model.CategoryOther, nil
	}
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// parseRenewal accepts YYYY-MM-DD or +N (days from today).
func parseRenewal(s string, now time.Time) (model.Date, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		var n int
		if _, err := fmt.Sscanf(s, "+%d", &n); err != nil || n < 0 {
			return model.Date{}, fmt.Errorf("bad renewal offset %q", s)
		}
		return model.DateOf(now).AddDays(n), nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("bad renewal date %q (want YYYY-MM-DD or +N)", s)
	}
	return d, nil
}
