package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/money"
	"github.com/and161185/subtrack/internal/tier"
)

func settingsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print current preferences",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return renderSettings(cmd.OutOrStdout(), get().settings.Get())
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change a preference (language, currency, theme, push, email)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := get()
				p, err := settingsPatch(args[0], args[1], a.settings.Get().IsPro)
				if err != nil {
					return err
				}
				if err := a.settings.Apply(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", strings.ToLower(args[0]), args[1])
				return nil
			},
		},
	)
	return cmd
}

// settingsPatch turns KEY VALUE into a patch, refusing values the tier does not unlock.
func settingsPatch(key, value string, isPro bool) (model.SettingsPatch, error) {
	var p model.SettingsPatch
	limits := tier.For(isPro)
	switch strings.ToLower(key) {
	case "language", "lang":
		l := model.Language(strings.ToLower(value))
		if !l.Valid() {
			return p, fmt.Errorf("unknown language %q (want one of %v)", value, model.Languages)
		}
		if !tier.CanAccessFeature(tier.AllLanguages, isPro) && !limits.AllowsLanguage(l) {
			return p, fmt.Errorf("language %q requires Pro; run 'subtrack upgrade'", l)
		}
		p.Language = &l
	case "currency":
		c, err := parseCurrency(value)
		if err != nil {
			return p, err
		}
		if !tier.CanAccessFeature(tier.AllCurrencies, isPro) && !limits.AllowsCurrency(c) {
			return p, fmt.Errorf("currency %s requires Pro; run 'subtrack upgrade'", c)
		}
		p.Currency = &c
	case "theme":
		t := model.ThemeMode(strings.ToLower(value))
		if !t.Valid() {
			return p, fmt.Errorf("unknown theme %q (light, dark, system)", value)
		}
		p.Theme = &t
	case "push", "email":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return p, fmt.Errorf("%s: want true or false", key)
		}
		if strings.ToLower(key) == "push" {
			p.PushNotifications = &on
		} else {
			p.EmailNotifications = &on
		}
	default:
		return p, fmt.Errorf("unknown setting %q", key)
	}
	return p, nil
}

func upgradeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Switch to the Pro plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			out := cmd.OutOrStdout()
			if a.settings.Get().IsPro {
				fmt.Fprintln(out, "already on Pro")
				return nil
			}
			a.settings.SetPro(cmd.Context(), true)
			fmt.Fprintf(out, "Pro enabled (%s/month or %s/year)\n",
				money.Format(tier.ProPrice.Monthly, tier.ProPrice.Currency),
				money.Format(tier.ProPrice.Yearly, tier.ProPrice.Currency))
			return nil
		},
	}
}

func downgradeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "downgrade",
		Short: "Return to the free plan",
		Long: `Return to the free plan. Existing subscriptions are kept; language and
currency fall back to the free defaults when they need Pro.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			st := a.settings.Get()
			off := false
			p := model.SettingsPatch{IsPro: &off}
			free := tier.For(false)
			def := model.DefaultSettings()
			if !free.AllowsLanguage(st.Language) {
				p.Language = &def.Language
			}
			if !free.AllowsCurrency(st.Currency) {
				p.Currency = &def.Currency
			}
			if err := a.settings.Apply(cmd.Context(), p); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "free plan active")
			if n := a.subs.Count(); n > tier.MaxFreeSubscriptions {
				fmt.Fprintf(out, "you have %d subscriptions; adding more requires Pro\n", n)
			}
			return nil
		},
	}
}
