package service

import (
	"log/slog"

	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/tracer"
)

// serviceConfig holds optional dependencies shared by the wallet services.
type serviceConfig struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	publisher EventPublisher
	cache     ReadingCache
}

// Option configures a service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = t
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(c *serviceConfig) {
		c.publisher = p
	}
}

// WithReadingCache lets registration drop a cached ledger reading for the
// address it just wrote.
func WithReadingCache(cache ReadingCache) Option {
	return func(c *serviceConfig) {
		c.cache = cache
	}
}

func newConfig(opts []Option) serviceConfig {
	c := serviceConfig{
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
