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
	"github.com/and161185/subtrack/internal/validate"
)

func credFlags(cmd *cobra.Command, email, password *string) {
	cmd.Flags().StringVarP(email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(password, "password", "p", "", "account password (min 8 chars)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}

func registerCmd(get func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a cloud account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := validate.Credentials(model.Credentials{Email: email, Password: password}); err != nil {
				return err
			}
			if err := a.auth.Register(cmd.Context(), email, password); err != nil {
				if errors.Is(err, errs.ErrAlreadyExists) {
					return fmt.Errorf("register: %s is already registered, use 'subtrack login'", email)
				}
				return fmt.Errorf("register: %w", err)
			}
			out := cmd.OutOrStdout()
			if !a.auth.IsAuthenticated() {
				fmt.Fprintln(out, "account created; sign in with 'subtrack login'")
				return nil
			}
			u, _ := a.auth.User()
			fmt.Fprintf(out, "registered and signed in as %s\n", u.Email)
			return syncAfterSignIn(cmd.Context(), out, a)
		},
	}
	credFlags(cmd, &email, &password)
	return cmd
}

func loginCmd(get func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and upload records created offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.auth.Login(cmd.Context(), email, password); err != nil {
				switch {
				case errors.Is(err, errs.ErrUnauthorized):
					return errors.New("login: wrong email or password")
				case errors.Is(err, errs.ErrRateLimited):
					return errors.New("login: too many attempts, try again later")
				}
				return fmt.Errorf("login: %w", err)
			}
			u, _ := a.auth.User()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "signed in as %s\n", u.Email)
			return syncAfterSignIn(cmd.Context(), out, a)
		},
	}
	credFlags(cmd, &email, &password)
	return cmd
}

// syncAfterSignIn uploads local records once, reports what could not be
// uploaded, then fetches the server list.
func syncAfterSignIn(ctx context.Context, out io.Writer, a *app) error {
	uid, ok := a.auth.UserID()
	if !ok {
		return errs.ErrUnauthenticated
	}
	rep, err := a.subs.MigrateLocalToCloud(ctx, uid)
	printMigration(out, rep)
	if err != nil && !errors.Is(err, errs.ErrMigrationIncomplete) {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := a.subs.SyncWithCloud(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	fmt.Fprintf(out, "%d subscription(s) in the cloud\n", a.subs.Count())
	return nil
}

func printMigration(out io.Writer, rep subscriptions.MigrationReport) {
	if rep.Skipped || (len(rep.Uploaded) == 0 && len(rep.Dropped) == 0) {
		return
	}
	fmt.Fprintf(out, "uploaded %d local subscription(s)\n", len(rep.Uploaded))
	for _, d := range rep.Dropped {
		fmt.Fprintf(out, "warning: %q was not uploaded and is no longer on this device: %v\n", d.Record.Name, d.Err)
	}
}

func logoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; records stay on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			a.auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func whoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account and plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			out := cmd.OutOrStdout()
			plan := "free"
			if a.settings.Get().IsPro {
				plan = "pro"
			}
			u, ok := a.auth.User()
			if !ok || !a.auth.IsAuthenticated() {
				fmt.Fprintf(out, "not signed in (local mode, %s plan)\n", plan)
				return nil
			}
			fmt.Fprintf(out, "%s (%s, %s plan)\n", u.Email, u.ID, plan)
			return nil
		},
	}
}
