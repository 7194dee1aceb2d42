// Package resilience puts a circuit breaker in front of remote calls.
package resilience

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pourline/pourline/internal/platform/logging"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("circuit breaker: too many requests")
)

// Config holds circuit breaker settings.
type Config struct {
	Name             string
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // window for clearing counts while closed (0 = never)
	Timeout          time.Duration // open -> half-open delay
	FailureThreshold uint32        // consecutive failures that trip the breaker
	FailureRatio     float64       // failure ratio that trips the breaker
	MinRequests      uint32        // requests required before the ratio is considered
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		FailureRatio:     0.6,
		MinRequests:      10,
	}
}

// CircuitBreaker wraps gobreaker with logging.
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *logging.Logger
}

// NewCircuitBreaker creates a breaker from cfg.
func NewCircuitBreaker(cfg Config, logger *logging.Logger) *CircuitBreaker {
	if logger == nil {
		logger = logging.Nop()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.FailureThreshold > 0 && counts.ConsecutiveFailures >= cfg.FailureThreshold {
				return true
			}
			if cfg.MinRequests > 0 && counts.Requests >= cfg.MinRequests && cfg.FailureRatio > 0 {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= cfg.FailureRatio
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CircuitBreaker{
		cb:     gobreaker.NewCircuitBreaker(settings),
		name:   cfg.Name,
		logger: logger,
	}
}

// Execute runs fn through the breaker. A rejected call returns an error
// wrapping ErrCircuitOpen or ErrTooManyRequests.
func Execute[T any](c *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if c == nil {
		return fn()
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		return fn()
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		c.logger.Warn("Circuit breaker is open", "name", c.name)
		return zero, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logger.Warn("Circuit breaker: too many requests", "name", c.name)
		return zero, fmt.Errorf("%s: %w", c.name, ErrTooManyRequests)
	case err != nil:
		if v, ok := result.(T); ok {
			return v, err
		}
		return zero, err
	}

	v, _ := result.(T)
	return v, nil
}

// State returns the breaker state name.
func (c *CircuitBreaker) State() string { return c.cb.State().String() }

// Name returns the breaker name.
func (c *CircuitBreaker) Name() string { return c.name }

// Counts returns the current counts.
func (c *CircuitBreaker) Counts() gobreaker.Counts { return c.cb.Counts() }
