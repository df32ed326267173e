package payments

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// BreakerProvider stops calling a failing gateway for a cool-down period so
// checkouts fail fast instead of waiting on provider timeouts.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[CheckoutSession]
}

// BreakerConfig tunes the breaker; zero values use the defaults.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func NewBreakerProvider(next Provider, cfg BreakerConfig, logger *zap.Logger) *BreakerProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = breakerFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = breakerOpenTimeout
	}
	threshold := cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[CheckoutSession](gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payments: circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerProvider{next: next, cb: cb}
}

func (p *BreakerProvider) Name() string { return p.next.Name() }

func (p *BreakerProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	return p.cb.Execute(func() (CheckoutSession, error) {
		return p.next.CreateCheckoutSession(ctx, req)
	})
}
