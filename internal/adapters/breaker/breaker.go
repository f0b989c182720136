// Package breaker builds the circuit breakers guarding outbound model calls.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

const (
	halfOpenRequests    = 3
	countResetInterval  = 60 * time.Second
	openTimeout         = 30 * time.Second
	consecutiveFailures = 5
	minRequests         = 10
	failureRatio        = 0.6
)

// Option adjusts breaker settings.
type Option func(*gobreaker.Settings)

// WithOpenTimeout sets how long the breaker stays open before probing again.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *gobreaker.Settings) {
		if d > 0 {
			s.Timeout = d
		}
	}
}

// WithTripAfter trips the breaker after n consecutive failures.
func WithTripAfter(n uint32) Option {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= n
		}
	}
}

// New returns a breaker that opens after more than five consecutive failures,
// or a 60% failure ratio over at least ten requests. State changes are logged
// and exported as metrics.
func New(name string, log logger.Logger, opts ...Option) *gobreaker.CircuitBreaker {
	if log == nil {
		log = logger.Get().Named("breaker")
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenRequests,
		Interval:    countResetInterval,
		Timeout:     openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.ConsecutiveFailures > consecutiveFailures {
				return true
			}
			return c.Requests >= minRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}
	for _, opt := range opts {
		opt(&st)
	}
	metrics.UpdateBreakerState(name, int(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker(st)
}

// IsOpen reports whether err came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
