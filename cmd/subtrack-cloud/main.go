// Command subtrack-cloud starts the subtrack cloud backend: a gRPC API over
// PostgreSQL plus an admin HTTP endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/subtrack/internal/cloudapi"
	"github.com/and161185/subtrack/internal/config"
	"github.com/and161185/subtrack/internal/limiter"
	"github.com/and161185/subtrack/internal/logging"
	"github.com/and161185/subtrack/internal/migrate"
	"github.com/and161185/subtrack/internal/repository/postgres"
	"github.com/and161185/subtrack/internal/server/admin"
	grpcserver "github.com/and161185/subtrack/internal/server/grpc"
	"github.com/and161185/subtrack/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewServerViper()
	var cfg *config.Server

	cmd := &cobra.Command{
		Use:           "subtrack-cloud",
		Short:         "subtrack cloud backend (gRPC + PostgreSQL)",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			cfg, err = config.LoadServer(v)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.NewServer(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return run(cmd.Context(), cfg, log)
		},
	}

	f := cmd.Flags()
	f.String("config", "", "config file (yaml)")
	f.String("addr", ":8443", "listen address")
	f.String("dsn", "", "PostgreSQL DSN")
	f.String("jwt-key", "", "HS256 signing key (required, >=16 bytes)")
	f.Duration("access-ttl", 15*time.Minute, "access token TTL")
	f.Int("max-rows", 1000, "max subscriptions per user")
	f.String("tls-cert", "", "TLS certificate (PEM); empty with --tls-key runs plaintext")
	f.String("tls-key", "", "TLS private key (PEM)")
	f.Bool("dev", false, "enable server reflection (dev only)")
	f.String("admin-addr", ":9090", "admin HTTP address (/healthz, /metrics); empty disables")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	for key, flag := range map[string]string{
		"config":     "config",
		"addr":       "addr",
		"dsn":        "dsn",
		"jwt_key":    "jwt-key",
		"access_ttl": "access-ttl",
		"max_rows":   "max-rows",
		"tls_cert":   "tls-cert",
		"tls_key":    "tls-key",
		"dev":        "dev",
		"admin_addr": "admin-addr",
		"log.level":  "log-level",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

// run migrates the schema, wires repositories and services, and serves until ctx ends.
func run(ctx context.Context, cfg *config.Server, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("pgxpool: %w", err)
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	subRepo := postgres.NewSubscriptionRepo(db)

	lim := limiter.NewPGWithQuerier(db.Pool, cfg.Limiter.Window, cfg.Limiter.MaxFails, cfg.Limiter.BlockFor)
	janitor, err := limiter.NewJanitor(lim, cfg.Limiter.PurgeSchedule, cfg.Limiter.Retention, logger)
	if err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	// Services
	authSvc := service.NewAuthService(userRepo, []byte(cfg.JWTKey), cfg.AccessTTL, lim)
	subSvc := service.NewSubscriptionService(subRepo, cfg.MaxRows)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := grpcserver.NewMetrics(reg)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.MetricsUnary(metrics),
			grpcserver.AuthUnary([]byte(cfg.JWTKey), grpcserver.PublicMethods()...),
		),
	}
	if cfg.Plaintext() {
		logger.Warn("TLS disabled; use only for local development")
	} else {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)

	cloudapi.RegisterCloudServer(s, grpcserver.New(authSvc, subSvc, []byte(cfg.JWTKey)))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	var adm *admin.Server
	if cfg.AdminAddr != "" {
		adm = admin.NewServer(cfg.AdminAddr, admin.NewRouter(db, reg, logger), logger)
		adm.Start()
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", !cfg.Plaintext()))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve: %w", err)
		}
	}

	if adm != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := adm.Shutdown(sctx); err != nil {
			logger.Warn("admin shutdown", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	return nil
}

