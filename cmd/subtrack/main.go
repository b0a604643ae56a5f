// Command subtrack is the subscription tracker client. It works offline on a
// device store and mirrors records to the subtrack cloud once signed in.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/and161185/subtrack/internal/cloud"
	"github.com/and161185/subtrack/internal/cloudapi"
	"github.com/and161185/subtrack/internal/config"
	"github.com/and161185/subtrack/internal/kv"
	"github.com/and161185/subtrack/internal/logging"
	"github.com/and161185/subtrack/internal/reminder"
	"github.com/and161185/subtrack/internal/session"
	"github.com/and161185/subtrack/internal/settings"
	"github.com/and161185/subtrack/internal/subscriptions"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root, cleanup := newRootCmd(openApp)
	err := root.ExecuteContext(ctx)
	cleanup()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// backend is what the stores need from the cloud: authentication and the
// subscriptions table.
type backend interface {
	session.Provider
	subscriptions.CloudStore
}

// app holds the wired stores for one command invocation.
type app struct {
	cfg      *config.Client
	log      *zap.Logger
	auth     *session.Manager
	settings *settings.Store
	subs     *subscriptions.Store
	now      func() time.Time
	closers  []io.Closer
	unwatch  func()
}

// opener builds an app from configuration.
type opener func(ctx context.Context, cfg *config.Client) (*app, error)

// openApp wires the real device store and the gRPC cloud client.
func openApp(ctx context.Context, cfg *config.Client) (*app, error) {
	log, logCloser, err := logging.NewClient(cfg.Log)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("data dir: %w", err)
	}
	store, err := kv.Open(ctx, cfg.Store)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("open device store: %w", err)
	}
	conn, err := cloud.Dial(cloud.DialConfig{
		Addr:      cfg.Addr,
		CACert:    cfg.CACert,
		Insecure:  cfg.Insecure,
		Plaintext: cfg.Plaintext,
	})
	if err != nil {
		_ = store.Close()
		_ = logCloser.Close()
		return nil, fmt.Errorf("dial cloud: %w", err)
	}
	be := cloud.New(cloudapi.NewCloudClient(conn), store, log)

	a := newApp(cfg, log, store, be, time.Now)
	a.closers = append(a.closers, conn, store, logCloser)
	return a, nil
}

// newApp wires the stores over a device store and a cloud backend.
func newApp(cfg *config.Client, log *zap.Logger, store kv.Store, be backend, now func() time.Time) *app {
	auth := session.NewManager(be, log)
	return &app{
		cfg:      cfg,
		log:      log,
		auth:     auth,
		settings: settings.New(store, log),
		subs: subscriptions.New(store, be, auth, log,
			subscriptions.WithClock(now),
			subscriptions.WithReminders(reminder.NewNoop(log)),
		),
		now: now,
	}
}

// load restores persisted state. A session that cannot be restored leaves
// the client signed out.
func (a *app) load(ctx context.Context) error {
	if err := a.auth.Initialize(ctx); err != nil {
		a.log.Warn("session restore failed", zap.Error(err))
	}
	if err := a.settings.Load(ctx); err != nil {
		return err
	}
	if err := a.subs.Load(ctx); err != nil {
		return err
	}
	// The session may have expired while the client was closed.
	if !a.auth.IsAuthenticated() {
		a.resetSync(ctx)
	}
	a.unwatch = a.auth.Subscribe(func(s session.Snapshot) {
		if s.State == session.StateUnauthenticated {
			a.resetSync(context.Background())
		}
	})
	return nil
}

// resetSync re-arms the migration guard once no session is held, so records
// added while signed out are uploaded at the next sign-in instead of being
// replaced by the server list.
func (a *app) resetSync(ctx context.Context) {
	if a.subs.IsSynced() {
		a.log.Debug("session ended, local records will be migrated at next sign-in")
		a.subs.ResetSync(ctx)
	}
}

func (a *app) Close() {
	if a.unwatch != nil {
		a.unwatch()
	}
	a.auth.Close()
	for _, c := range a.closers {
		_ = c.Close()
	}
	_ = a.log.Sync()
}

// newRootCmd builds the command tree. cleanup releases whatever the
// executed command opened and must run after Execute returns.
func newRootCmd(open opener) (root *cobra.Command, cleanup func()) {
	v := config.NewClientViper()
	var (
		a      *app
		cancel context.CancelFunc = func() {}
	)

	root = &cobra.Command{
		Use:           "subtrack",
		Short:         "Track recurring subscriptions, offline first",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		cfg, err := config.LoadClient(v)
		if err != nil {
			return err
		}
		if a, err = open(cmd.Context(), cfg); err != nil {
			return err
		}
		var ctx context.Context
		ctx, cancel = context.WithTimeout(cmd.Context(), cfg.Timeout)
		cmd.SetContext(ctx)
		return a.load(ctx)
	}

	bindFlags(root, v)

	get := func() *app { return a }
	root.AddCommand(
		versionCmd(),
		registerCmd(get),
		loginCmd(get),
		logoutCmd(get),
		whoamiCmd(get),
		addCmd(get),
		listCmd(get),
		showCmd(get),
		editCmd(get),
		rmCmd(get),
		syncCmd(get),
		settingsCmd(get),
		upgradeCmd(get),
		downgradeCmd(get),
	)
	return root, func() {
		cancel()
		if a != nil {
			a.Close()
		}
	}
}

func bindFlags(root *cobra.Command, v *viper.Viper) {
	f := root.PersistentFlags()
	f.String("addr", "localhost:8443", "cloud address")
	f.String("cacert", "", "CA cert (PEM)")
	f.Bool("insecure", false, "skip cert verify (dev)")
	f.Bool("plaintext", false, "no TLS (local dev)")
	f.Duration("timeout", 30*time.Second, "per-command timeout")
	f.String("data-dir", config.DefaultDataDir(), "directory for the device store, log and config.yaml")
	f.String("store", "sqlite", "device store driver (sqlite, redis, memory)")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	for key, flag := range map[string]string{
		"addr":         "addr",
		"cacert":       "cacert",
		"insecure":     "insecure",
		"plaintext":    "plaintext",
		"timeout":      "timeout",
		"data_dir":     "data-dir",
		"store.driver": "store",
		"log.level":    "log-level",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "subtrack %s (%s)\n", version, buildDate)
		},
	}
}
