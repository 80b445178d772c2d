package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/tracer"
	"walletverify/pkg/platform/circuit"
)

// Policy bounds ledger reads. The zero value is completed by NewResilient.
type Policy struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxAttempts is the total number of attempts; 1 disables retries.
	MaxAttempts int
	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration
}

// DefaultPolicy is one 5s attempt.
func DefaultPolicy() Policy {
	return Policy{Timeout: 5 * time.Second, MaxAttempts: 1, Backoff: 200 * time.Millisecond}
}

// Resilient applies the timeout and retry policy and a circuit breaker to a Reader.
// Only retryable categories are retried.
type Resilient struct {
	next    Reader
	policy  Policy
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	sleep   func(ctx context.Context, d time.Duration) error
}

type ResilientOption func(*Resilient)

func WithLogger(logger *slog.Logger) ResilientOption {
	return func(r *Resilient) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) ResilientOption {
	return func(r *Resilient) { r.metrics = m }
}

func WithTracer(t tracer.Tracer) ResilientOption {
	return func(r *Resilient) { r.tracer = t }
}

// WithBreaker replaces the default breaker (5 failures, 10s cooldown).
func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(r *Resilient) { r.breaker = b }
}

// withSleep replaces the backoff sleep in tests.
func withSleep(fn func(ctx context.Context, d time.Duration) error) ResilientOption {
	return func(r *Resilient) { r.sleep = fn }
}

func NewResilient(next Reader, policy Policy, opts ...ResilientOption) *Resilient {
	def := DefaultPolicy()
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Backoff < 0 {
		policy.Backoff = 0
	}

	r := &Resilient{
		next:    next,
		policy:  policy,
		breaker: circuit.New("ledger_oracle"),
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) ReadFingerprint(ctx context.Context, address models.Address) (reading Reading, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, tracer.SpanOracleRead, tracer.String(tracer.AttrAddress, address.String()))
	defer func() {
		outcome := "absent"
		switch {
		case err != nil:
			outcome = string(CategoryOf(err))
			span.SetAttributes(tracer.String(tracer.AttrOracleCategory, outcome))
		case reading.Anchored:
			outcome = "anchored"
		}
		span.SetAttributes(tracer.Bool(tracer.AttrOracleAnchored, reading.Anchored))
		r.metrics.ObserveOracleRead(outcome, time.Since(start).Seconds())
		span.End(err)
	}()

	if !r.breaker.Allow() {
		span.SetAttributes(tracer.String(tracer.AttrCircuitState, r.breaker.State().String()))
		return Reading{}, NewError(CategoryCircuitOpen, "circuit breaker open", nil)
	}

	attempt := 0
	for {
		attempt++
		reading, err = r.attempt(ctx, address)
		if err == nil {
			r.recordSuccess(ctx)
			span.SetAttributes(tracer.Int64(tracer.AttrOracleAttempts, int64(attempt)))
			return reading, nil
		}
		if attempt >= r.policy.MaxAttempts || !IsRetryable(err) || ctx.Err() != nil {
			break
		}

		r.metrics.IncOracleRetry()
		span.AddEvent(tracer.EventOracleRetry,
			tracer.Int64(tracer.AttrOracleAttempts, int64(attempt)),
			tracer.String(tracer.AttrOracleCategory, string(CategoryOf(err))))
		if sleepErr := r.sleep(ctx, r.policy.Backoff*time.Duration(attempt)); sleepErr != nil {
			break
		}
	}

	span.SetAttributes(tracer.Int64(tracer.AttrOracleAttempts, int64(attempt)))
	if CategoryOf(err) != CategoryMisconfigured {
		r.recordFailure(ctx, err, span)
	}
	return Reading{}, err
}

func (r *Resilient) attempt(ctx context.Context, address models.Address) (Reading, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	reading, err := r.next.ReadFingerprint(attemptCtx, address)
	if err == nil {
		return reading, nil
	}

	var oe *Error
	if errors.As(err, &oe) {
		return Reading{}, err
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return Reading{}, NewError(CategoryTimeout, "ledger read timed out", err)
	}
	return Reading{}, NewError(CategoryInternal, "ledger read failed", err)
}

func (r *Resilient) recordSuccess(ctx context.Context) {
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.metrics.SetCircuitOpen(false)
		r.logger.InfoContext(ctx, "ledger oracle circuit closed", "breaker", r.breaker.Name())
	}
}

func (r *Resilient) recordFailure(ctx context.Context, err error, span tracer.Span) {
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.metrics.SetCircuitOpen(true)
		span.AddEvent(tracer.EventCircuitOpened)
		r.logger.WarnContext(ctx, "ledger oracle circuit opened",
			"breaker", r.breaker.Name(),
			"error", err,
		)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
