package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	domrepo "TradeCore/internal/domain/repository"
	brokermetrics "TradeCore/internal/service/metrics"
	"TradeCore/internal/service/ratelimit"
	applogger "TradeCore/pkg/logger"

	"TradeCore/internal/domain/models"
)

// ErrSubmissionFailed marks exhausted retries against every configured broker.
var ErrSubmissionFailed = errors.New("order submission failed")

// SubmitterConfig bounds broker interaction.
type SubmitterConfig struct {
	MaxAttempts  int
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	CallTimeout  time.Duration
	RateCapacity float64
	RatePerSec   float64
}

// OrderSubmitter submits sized orders to a broker adapter with bounded
// retry/backoff and owns broker failover. Transient failures are retried with
// exponential backoff and jitter; broker rejections are terminal. When the
// primary exhausts its attempts, the fallback (if configured) gets exactly one
// attempt before giving up.
type OrderSubmitter struct {
	primary  domrepo.BrokerAdapter
	fallback domrepo.BrokerAdapter
	cfg      SubmitterConfig
	limiter  *ratelimit.Limiter
	metrics  domrepo.Metrics
	l        *applogger.Logger
	sleep    func(time.Duration)
}

// NewOrderSubmitter creates a submitter. fallback may be nil.
func NewOrderSubmitter(
	primary, fallback domrepo.BrokerAdapter,
	cfg SubmitterConfig,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *OrderSubmitter {
	brokermetrics.Register()
	return &OrderSubmitter{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		limiter:  ratelimit.New(),
		metrics:  metrics,
		l:        l,
		sleep:    time.Sleep,
	}
}

// SetSleep overrides the backoff sleeper (tests).
func (s *OrderSubmitter) SetSleep(fn func(time.Duration)) { s.sleep = fn }

// Submit runs the bounded retry loop. The returned error is nil on success,
// wraps domrepo.ErrOrderRejected on terminal broker rejection, or wraps
// ErrSubmissionFailed when every attempt was exhausted.
func (s *OrderSubmitter) Submit(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	res, err := s.submitWithRetry(ctx, s.primary, req, s.cfg.MaxAttempts)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, domrepo.ErrOrderRejected) {
		return nil, err
	}

	if s.fallback != nil {
		if s.l != nil {
			s.l.Warn("primary broker exhausted, trying fallback",
				applogger.String("primary", s.primary.Name()),
				applogger.String("fallback", s.fallback.Name()),
				applogger.Error(err),
			)
		}
		res, ferr := s.submitWithRetry(ctx, s.fallback, req, 1)
		if ferr == nil {
			return res, nil
		}
		if errors.Is(ferr, domrepo.ErrOrderRejected) {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: primary %s and fallback %s: %v", ErrSubmissionFailed, s.primary.Name(), s.fallback.Name(), ferr)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrSubmissionFailed, s.primary.Name(), s.cfg.MaxAttempts, err)
}

func (s *OrderSubmitter) submitWithRetry(ctx context.Context, broker domrepo.BrokerAdapter, req *models.OrderRequest, attempts int) (*models.OrderResult, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if s.cfg.RatePerSec > 0 && !s.limiter.Allow(broker.Name(), s.cfg.RateCapacity, s.cfg.RatePerSec) {
			lastErr = fmt.Errorf("broker %s rate limited", broker.Name())
			s.metrics.RecordOrderAttempt(broker.Name(), "rate_limited")
			s.sleep(backoffWithJitter(s.cfg.BackoffMin, s.cfg.BackoffMax, attempt))
			continue
		}

		start := time.Now()
		res, err := s.submitOnce(ctx, broker, req)
		brokermetrics.BrokerLatency.WithLabelValues(broker.Name(), "submit").Observe(time.Since(start).Seconds())

		if err == nil {
			s.metrics.RecordOrderAttempt(broker.Name(), "ok")
			return res, nil
		}
		if errors.Is(err, domrepo.ErrOrderRejected) {
			s.metrics.RecordOrderAttempt(broker.Name(), "rejected")
			brokermetrics.BrokerErrors.WithLabelValues(broker.Name(), "submit").Inc()
			return nil, err
		}

		lastErr = err
		s.metrics.RecordOrderAttempt(broker.Name(), "transient_error")
		brokermetrics.BrokerErrors.WithLabelValues(broker.Name(), "submit").Inc()
		if s.l != nil {
			s.l.Warn("order submission attempt failed",
				applogger.String("broker", broker.Name()),
				applogger.String("ticker", req.Ticker),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
		}
		if attempt < attempts {
			s.sleep(backoffWithJitter(s.cfg.BackoffMin, s.cfg.BackoffMax, attempt))
		}
	}
	return nil, lastErr
}

// submitOnce applies the per-call timeout. Timeouts cover the network call
// only; pipeline work before it is cheap and bounded.
func (s *OrderSubmitter) submitOnce(ctx context.Context, broker domrepo.BrokerAdapter, req *models.OrderRequest) (*models.OrderResult, error) {
	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}
	return broker.Submit(ctx, req)
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}
