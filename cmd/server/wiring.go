package main

import (
	"context"
	"fmt"
	"log/slog"

	"walletverify/internal/platform/config"
	"walletverify/internal/platform/database"
	"walletverify/internal/platform/health"
	"walletverify/internal/platform/kafka/producer"
	redisplatform "walletverify/internal/platform/redis"
	"walletverify/internal/wallet/events"
	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/oracle"
	"walletverify/internal/wallet/service"
	"walletverify/internal/wallet/store"
	"walletverify/internal/wallet/tracer"
	"walletverify/migrations"
	"walletverify/pkg/platform/circuit"
)

type walletStore interface {
	service.Store
	Health(ctx context.Context) error
}

// buildStore opens the configured backend. The returned func releases it.
func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (walletStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			pool.Close() //nolint:errcheck // init failure
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info("wallet store ready", "driver", config.StorePostgres)
		return store.NewPostgres(pool.DB()), func() { pool.Close() }, nil //nolint:errcheck // process exit

	case config.StoreSQLite:
		st, err := store.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("wallet store ready", "driver", config.StoreSQLite, "path", cfg.Store.SQLitePath)
		return st, func() { st.Close() }, nil //nolint:errcheck // process exit

	default:
		log.Info("wallet store ready", "driver", config.StoreMemory)
		return store.NewInMemory(), func() {}, nil
	}
}

// buildOracle composes adapter -> resilience policy -> optional Redis cache.
// The cache is returned separately, nil when disabled, so registration can
// invalidate it.
func buildOracle(
	cfg config.Config,
	redisClient *redisplatform.Client,
	log *slog.Logger,
	m *metrics.Metrics,
	tr tracer.Tracer,
	healthHandler *health.Handler,
) (service.Oracle, *oracle.Cached) {
	adapter := oracle.NewEthereumAdapter(oracle.EthereumConfig{
		RPCURL:          cfg.Oracle.RPCURL,
		ContractAddress: cfg.Oracle.ContractAddress,
		Timeout:         cfg.Oracle.Timeout,
	})
	if adapter.Configured() {
		healthHandler.RegisterCheck("oracle", adapter.Health)
	} else {
		log.Warn("ledger oracle not configured; verification reports the oracle as unavailable",
			"contract_address", cfg.Oracle.ContractAddress,
		)
	}

	var reader oracle.Reader = oracle.NewResilient(adapter,
		oracle.Policy{
			Timeout:     cfg.Oracle.Timeout,
			MaxAttempts: cfg.Oracle.MaxAttempts,
			Backoff:     cfg.Oracle.Backoff,
		},
		oracle.WithLogger(log),
		oracle.WithMetrics(m),
		oracle.WithTracer(tr),
		oracle.WithBreaker(circuit.New("ledger_oracle")),
	)

	if redisClient != nil && cfg.Oracle.CacheTTL > 0 {
		log.Info("ledger oracle cache enabled", "ttl", cfg.Oracle.CacheTTL)
		cached := oracle.NewCached(reader, redisClient, cfg.Oracle.CacheTTL,
			oracle.WithCacheLogger(log),
			oracle.WithCacheMetrics(m),
		)
		return cached, cached
	}
	return reader, nil
}

// buildEventSink returns the Kafka publisher when brokers are configured and
// the log publisher otherwise. The returned func flushes and closes it.
func buildEventSink(cfg config.Config, log *slog.Logger, healthHandler *health.Handler) (events.Publisher, func(context.Context) error, error) {
	if !cfg.Kafka.Enabled() {
		return events.NewLogPublisher(log), func(context.Context) error { return nil }, nil
	}

	p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}
	healthHandler.RegisterCheck("kafka", p.Health)
	log.Info("wallet events publishing to kafka", "topic", cfg.Kafka.Topic)
	return events.NewKafkaPublisher(p, cfg.Kafka.Topic), p.Close, nil
}
