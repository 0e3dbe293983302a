package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/complyx/complyx/internal/api"
	"github.com/complyx/complyx/internal/config"
	"github.com/complyx/complyx/internal/logging"
	"github.com/complyx/complyx/internal/metrics"
	"github.com/complyx/complyx/internal/scheduler"
	"github.com/complyx/complyx/internal/service"
	"github.com/complyx/complyx/internal/settings"
	"github.com/complyx/complyx/internal/store"
	"github.com/complyx/complyx/internal/telemetry"
	"github.com/complyx/complyx/internal/vault"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// 1. Logging and tracing
	logger, err := logging.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting Comply-X daemon", zap.String("version", version), zap.String("addr", cfg.Server.Addr))

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Logging.Env,
		Exporter:       cfg.Tracing.Exporter,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 2. Storage and audit trail
	kv, err := openKV(cfg.Storage.Driver, cfg.Storage, logger)
	if err != nil {
		return err
	}
	st := store.New(kv)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close failed", zap.Error(err))
		}
	}()

	auditLog, err := openAudit(ctx, cfg.Audit)
	if err != nil {
		return err
	}
	defer func() {
		if err := auditLog.Close(); err != nil {
			logger.Error("audit log close failed", zap.Error(err))
		}
	}()

	// 3. Services
	suggester, err := newSuggester(cfg.AI, m, logger)
	if err != nil {
		return err
	}
	svc := service.New(service.Deps{
		Store:   st,
		Audit:   auditLog,
		Suggest: suggester,
		Metrics: m,
		Logger:  logger,
		Retention: service.Retention{
			ArchivedYears: cfg.Retention.ArchivedYears,
			AuditYears:    cfg.Retention.AuditYears,
		},
	})
	if cfg.Bootstrap.AdminUsername != "" {
		admin, err := svc.Bootstrap(cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminEmail)
		if err != nil {
			return err
		}
		if admin != nil {
			logger.Info("bootstrap admin created", zap.String("user_id", admin.ID), zap.String("username", admin.Username))
		}
	}

	sched := scheduler.New(svc, cfg.Scheduler.Interval, m, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	// 4. HTTP API
	if cfg.Logging.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Options{
		Service:        svc,
		Settings:       settings.NewService(st, logger),
		Auth:           &api.HeaderAuthProvider{Users: svc, Token: cfg.Server.GatewayToken},
		Metrics:        m,
		Gatherer:       reg,
		Logger:         logger,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		TraceService:   serviceName,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	if cfg.Server.TLS {
		logger.Info("generating self-signed certificate")
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return err
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	}

	// 5. Run until a signal arrives or the listener fails
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", zap.String("addr", srv.Addr), zap.Bool("tls", cfg.Server.TLS))
		var err error
		if cfg.Server.TLS {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("http api stopped, finalizing storage")
	return err
}
