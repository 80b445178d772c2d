package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"walletverify/internal/admin"
	"walletverify/internal/admin/token"
	"walletverify/internal/platform/config"
	"walletverify/internal/platform/health"
	"walletverify/internal/platform/logger"
	redisplatform "walletverify/internal/platform/redis"
	httptransport "walletverify/internal/transport/http"
	"walletverify/internal/wallet/events"
	wallethandler "walletverify/internal/wallet/handler"
	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/service"
	"walletverify/internal/wallet/tracer"
	"walletverify/pkg/platform/middleware/request"
)

const redisStatsInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("walletverify exited", "error", err)
		os.Exit(1)
	}
}

// run wires high-level dependencies and owns the process lifecycle. Business
// logic lives in internal/wallet.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("initializing walletverify",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"store", cfg.Store.Driver,
		"kafka_enabled", cfg.Kafka.Enabled(),
		"oracle_configured", cfg.Oracle.ContractConfigured() && cfg.Oracle.RPCURL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	walletMetrics := metrics.New(nil)
	tr := tracer.NewOTel()
	healthHandler := health.New(cfg.Environment)

	st, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	healthHandler.RegisterCheck("store", st.Health)

	redisClient, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck // process exit
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", redisClient.Health)
	}

	ledger, ledgerCache := buildOracle(cfg, redisClient, log, walletMetrics, tr, healthHandler)

	sink, closeSink, err := buildEventSink(cfg, log, healthHandler)
	if err != nil {
		return err
	}
	publisher := events.NewAsync(sink,
		events.WithLogger(log),
		events.WithMetrics(walletMetrics),
	)

	registrationOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(walletMetrics),
		service.WithTracer(tr),
		service.WithEventPublisher(publisher),
	}
	if ledgerCache != nil {
		registrationOpts = append(registrationOpts, service.WithReadingCache(ledgerCache))
	}
	registration := service.NewRegistrationService(st, registrationOpts...)
	reconciler := service.NewReconciler(st, ledger,
		service.WithLogger(log),
		service.WithMetrics(walletMetrics),
		service.WithTracer(tr),
		service.WithEventPublisher(publisher),
	)

	tokens := token.New(cfg.Admin.JWTSigningKey, cfg.Admin.Issuer, cfg.Admin.Audience, cfg.Admin.TokenTTL)
	gate, err := admin.New(admin.Config{
		Username:     cfg.Admin.Username,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
		StaticToken:  cfg.Admin.StaticToken,
	}, tokens, admin.WithLogger(log), admin.WithMetrics(admin.NewMetrics(nil)))
	if err != nil {
		return fmt.Errorf("configure admin gate: %w", err)
	}
	if !gate.LoginEnabled() && cfg.Admin.StaticToken == "" {
		log.Warn("no admin credential configured; admin routes reject every request")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Wallets:        wallethandler.New(registration, reconciler, log),
		AdminLogin:     admin.NewHandler(gate, log),
		Authorizer:     gate,
		Health:         healthHandler,
		Metrics:        request.NewMetrics(),
		MetricsHandler: promhttp.Handler(),
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if redisClient != nil {
		g.Go(func() error {
			return redisClient.RunPoolStats(gctx, redisStatsInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := publisher.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("drain events: %w", err))
		}
		if err := closeSink(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("close event sink: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
