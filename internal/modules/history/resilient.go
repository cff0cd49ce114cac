package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/aristath/analogs/internal/domain"
)

// ResilienceConfig configures rate limiting and circuit breaking around a provider
type ResilienceConfig struct {
	RequestsPerSecond   float64
	Burst               int
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultResilienceConfig returns conservative defaults
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerSecond:   20,
		Burst:               5,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// ResilientProvider wraps a ReturnProvider with a token-bucket rate limiter
// and a circuit breaker. A missing series (ErrDataUnavailable) is a data gap,
// not a fault, and does not count toward tripping the breaker.
type ResilientProvider struct {
	inner   domain.ReturnProvider
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewResilientProvider wraps inner with the given limits
func NewResilientProvider(inner domain.ReturnProvider, cfg ResilienceConfig, log zerolog.Logger) *ResilientProvider {
	defaults := DefaultResilienceConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = defaults.ConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}

	rp := &ResilientProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		log:     log.With().Str("component", "price_provider").Logger(),
	}

	rp.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "price_provider",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrDataUnavailable) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			rp.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Price provider circuit breaker state changed")
		},
	})

	return rp
}

// GetReturnAndDrawdown implements domain.ReturnProvider
func (rp *ResilientProvider) GetReturnAndDrawdown(ctx context.Context, ticker string, dateRange domain.DateRange) (domain.ReturnAndDrawdown, error) {
	if err := rp.limiter.Wait(ctx); err != nil {
		return domain.ReturnAndDrawdown{}, fmt.Errorf("rate limiter wait for %s: %w", ticker, err)
	}

	result, err := rp.breaker.Execute(func() (interface{}, error) {
		return rp.inner.GetReturnAndDrawdown(ctx, ticker, dateRange)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.ReturnAndDrawdown{}, fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, ticker, err)
		}
		return domain.ReturnAndDrawdown{}, err
	}

	return result.(domain.ReturnAndDrawdown), nil
}

// State returns the current breaker state ("closed", "half-open", "open")
func (rp *ResilientProvider) State() string {
	return rp.breaker.State().String()
}
