package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/subscriptions"
	"github.com/and161185/subtrack/internal/tier"
	"github.com/and161185/subtrack/internal/validate"
)

// defaultRenewalDays is the renewal offset used when add gets no date.
const defaultRenewalDays = 30

var errFreeLimit = fmt.Errorf("the free plan allows %d subscriptions; run 'subtrack upgrade' for unlimited", tier.MaxFreeSubscriptions)

func addCmd(get func() *app) *cobra.Command {
	var price, currency, renewalDate, category, notes string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a subscription",
		Long: `Add a subscription. Signed in, it is stored in the cloud; otherwise it
stays on this device and is uploaded on the next login.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			st := a.settings.Get()
			if tier.HasReachedLimit(a.subs.Count(), st.IsPro) {
				return errFreeLimit
			}

			in := model.CreateSubscriptionInput{Name: args[0], Notes: notes}
			var err error
			if in.Price, err = parsePrice(price); err != nil {
				return err
			}
			in.Currency = st.Currency
			if currency != "" {
				if in.Currency, err = parseCurrency(currency); err != nil {
					return err
				}
			}
			in.RenewalDate = model.DateOf(a.now()).AddDays(defaultRenewalDays)
			if renewalDate != "" {
				if in.RenewalDate, err = parseRenewal(renewalDate, a.now()); err != nil {
					return err
				}
			}
			if in.Category, err = parseCategory(category); err != nil {
				return err
			}
			if err := validate.CreateInput(in); err != nil {
				return err
			}

			sub, err := a.subs.Add(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", sub.Name, sub.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&price, "price", "", "monthly price, e.g. 9.99")
	f.StringVar(&currency, "currency", "", "USD, EUR or MAD (default: settings currency)")
	f.StringVar(&renewalDate, "renewal", "", "next renewal, YYYY-MM-DD or +N days (default: +30)")
	f.StringVar(&category, "category", "", "category (streaming, music, design, ...)")
	f.StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

// refresh brings the collection up to date before display: first-run demo
// data when signed out, a cloud sync otherwise. Sync failures are reported
// and the device copy is shown.
func refresh(ctx context.Context, errOut io.Writer, a *app) {
	if !a.auth.IsAuthenticated() {
		a.subs.InitWithDemoData(ctx)
		return
	}
	outcome, err := a.subs.SyncWithCloud(ctx)
	if err == nil && outcome == subscriptions.SyncMigrated {
		_, err = a.subs.SyncWithCloud(ctx)
	}
	if err != nil {
		fmt.Fprintf(errOut, "warning: showing device copy, sync failed: %v\n", err)
	}
}

func listCmd(get func() *app) *cobra.Command {
	var (
		asJSON   bool
		active   bool
		expiring int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show subscriptions with renewal status and monthly spend",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			out := cmd.OutOrStdout()
			refresh(cmd.Context(), cmd.ErrOrStderr(), a)

			var subs []model.Subscription
			switch {
			case expiring >= 0:
				subs = a.subs.ExpiringWithin(expiring)
			case active:
				subs = a.subs.Active()
			default:
				subs = a.subs.All()
			}
			byRenewal(subs)

			if asJSON {
				if subs == nil {
					subs = []model.Subscription{}
				}
				return printJSON(out, subs)
			}
			if len(subs) == 0 {
				fmt.Fprintln(out, "No subscriptions. Add one with 'subtrack add NAME --price 9.99'.")
				return nil
			}
			if err := renderTable(out, subs, a.now()); err != nil {
				return err
			}
			fmt.Fprintln(out)
			cur := a.settings.Get().Currency
			renderTotals(out, a.subs.BurnRate(cur), cur)
			if st := a.settings.Get(); !st.IsPro {
				fmt.Fprintf(out, "%d/%d on the free plan\n", a.subs.Count(), tier.MaxFreeSubscriptions)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print JSON")
	f.BoolVar(&active, "active", false, "only active subscriptions")
	f.IntVar(&expiring, "expiring", -1, "only active subscriptions renewing within N days")
	return cmd
}

func lookup(a *app, raw string) (model.Subscription, error) {
	id, err := model.ParseSubscriptionID(raw)
	if err != nil {
		return model.Subscription{}, err
	}
	sub, ok := a.subs.Get(id)
	if !ok {
		return model.Subscription{}, fmt.Errorf("%s: %w", raw, errs.ErrNotFound)
	}
	return sub, nil
}

func showCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one subscription as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := lookup(get(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sub)
		},
	}
}

func editCmd(get func() *app) *cobra.Command {
	var (
		name, price, currency, renewalDate, category, notes string
		active                                              bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			sub, err := lookup(a, args[0])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			var p model.SubscriptionPatch
			if f.Changed("name") {
				p.Name = &name
			}
			if f.Changed("price") {
				v, err := parsePrice(price)
				if err != nil {
					return err
				}
				p.Price = &v
			}
			if f.Changed("currency") {
				v, err := parseCurrency(currency)
				if err != nil {
					return err
				}
				p.Currency = &v
			}
			if f.Changed("renewal") {
				v, err := parseRenewal(renewalDate, a.now())
				if err != nil {
					return err
				}
				p.RenewalDate = &v
			}
			if f.Changed("category") {
				v, err := parseCategory(category)
				if err != nil {
					return err
				}
				p.Category = &v
			}
			if f.Changed("notes") {
				p.Notes = &notes
			}
			if f.Changed("active") {
				p.IsActive = &active
			}
			if p.IsEmpty() {
				return errors.New("nothing to change")
			}
			if err := validate.Patch(p); err != nil {
				return err
			}

			upd, err := a.subs.Update(cmd.Context(), sub.ID, p)
			if err != nil {
				return fmt.Errorf("edit: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", upd.Name, upd.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "new name")
	f.StringVar(&price, "price", "", "new monthly price")
	f.StringVar(&currency, "currency", "", "new currency")
	f.StringVar(&renewalDate, "renewal", "", "new renewal date, YYYY-MM-DD or +N days")
	f.StringVar(&category, "category", "", "new category")
	f.StringVar(&notes, "notes", "", "new notes")
	f.BoolVar(&active, "active", true, "active (false pauses the subscription)")
	return cmd
}

func rmCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a subscription",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			sub, err := lookup(a, args[0])
			if err != nil {
				return err
			}
			if err := a.subs.Delete(cmd.Context(), sub.ID); err != nil {
				// the record is gone from this device either way
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: cloud delete failed: %v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", sub.Name)
			return nil
		},
	}
}

func syncCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the device copy with the cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if !a.auth.IsAuthenticated() {
				return fmt.Errorf("sync: %w; run 'subtrack login'", errs.ErrUnauthenticated)
			}
			return syncAfterSignIn(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}
}
