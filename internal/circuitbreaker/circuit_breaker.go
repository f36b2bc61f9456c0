// Package circuitbreaker stops calls to a failing dependency for a while so
// request handlers are not slowed down by it.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

const (
	defaultMaxFailures = 5
	defaultTimeout     = 30 * time.Second
	defaultMaxRequests = 1

	maxMaxFailures = 1000
	maxTimeout     = 10 * time.Minute
	maxMaxRequests = 100
)

type Config struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// Timeout is how long the breaker stays open before letting trial calls through.
	Timeout time.Duration
	// MaxRequests trial calls are allowed while half-open.
	MaxRequests   int
	OnStateChange func(name string, from State, to State)
}

// Metrics is a point-in-time view of a breaker.
type Metrics struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	TotalRequests   int64     `json:"total_requests"`
	TotalFailures   int64     `json:"total_failures"`
	TotalSuccesses  int64     `json:"total_successes"`
	StateChanges    int64     `json:"state_changes"`
	LastFailure     time.Time `json:"last_failure"`
	LastStateChange time.Time `json:"last_state_change"`
}

type CircuitBreaker struct {
	name          string
	maxFailures   int
	timeout       time.Duration
	maxRequests   int
	onStateChange func(name string, from State, to State)

	mutex        sync.Mutex
	state        State
	failures     int
	requests     int
	lastFailTime time.Time

	totalRequests   int64
	totalFailures   int64
	totalSuccesses  int64
	stateChanges    int64
	lastStateChange time.Time

	logger *logrus.Logger
}

// New builds a breaker, replacing out-of-range config values with defaults
// or caps and logging each replacement.
func New(config Config, logger *logrus.Logger) *CircuitBreaker {
	if config.Name == "" {
		config.Name = "unnamed"
		logger.Warn("Circuit breaker created without name, using 'unnamed'")
	}

	fix := func(field string, invalid, replacement interface{}) {
		logger.WithFields(logrus.Fields{
			"circuit_breaker": config.Name,
			"field":           field,
			"invalid_value":   invalid,
			"used_value":      replacement,
		}).Warn("Invalid circuit breaker setting, replacing")
	}

	switch {
	case config.MaxFailures <= 0:
		fix("max_failures", config.MaxFailures, defaultMaxFailures)
		config.MaxFailures = defaultMaxFailures
	case config.MaxFailures > maxMaxFailures:
		fix("max_failures", config.MaxFailures, maxMaxFailures)
		config.MaxFailures = maxMaxFailures
	}

	switch {
	case config.Timeout <= 0:
		fix("timeout", config.Timeout.String(), defaultTimeout.String())
		config.Timeout = defaultTimeout
	case config.Timeout > maxTimeout:
		fix("timeout", config.Timeout.String(), maxTimeout.String())
		config.Timeout = maxTimeout
	}

	switch {
	case config.MaxRequests <= 0:
		fix("max_requests", config.MaxRequests, defaultMaxRequests)
		config.MaxRequests = defaultMaxRequests
	case config.MaxRequests > maxMaxRequests:
		fix("max_requests", config.MaxRequests, maxMaxRequests)
		config.MaxRequests = maxMaxRequests
	}

	return &CircuitBreaker{
		name:          config.Name,
		maxFailures:   config.MaxFailures,
		timeout:       config.Timeout,
		maxRequests:   config.MaxRequests,
		onStateChange: config.OnStateChange,
		state:         StateClosed,
		logger:        logger,
	}
}

// Execute runs fn unless the breaker is open. Rejected calls return
// ErrCircuitBreakerOpen and are not counted as requests.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mutex.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailTime) <= cb.timeout {
			cb.mutex.Unlock()
			return ErrCircuitBreakerOpen
		}
		cb.setState(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.requests >= cb.maxRequests {
			cb.mutex.Unlock()
			return ErrCircuitBreakerOpen
		}
		cb.requests++
	}
	cb.totalRequests++
	cb.mutex.Unlock()

	err := fn()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil {
		cb.totalFailures++
		cb.onFailure()
		return err
	}
	cb.totalSuccesses++
	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailTime = time.Now()

	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.setState(StateOpen)
	}
}

// setState must be called with mutex held.
func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.requests = 0
	cb.stateChanges++
	cb.lastStateChange = time.Now()

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"from_state":      oldState.String(),
		"to_state":        newState.String(),
	}).Info("Circuit breaker state changed")

	if cb.onStateChange != nil {
		go cb.notify(oldState, newState)
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	defer func() {
		if r := recover(); r != nil {
			cb.logger.WithFields(logrus.Fields{
				"circuit_breaker": cb.name,
				"from_state":      from.String(),
				"to_state":        to.String(),
				"panic":           r,
			}).Error("Circuit breaker state change callback panicked")
		}
	}()
	cb.onStateChange(cb.name, from, to)
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Metrics{
		Name:            cb.name,
		State:           cb.state.String(),
		Failures:        cb.failures,
		TotalRequests:   cb.totalRequests,
		TotalFailures:   cb.totalFailures,
		TotalSuccesses:  cb.totalSuccesses,
		StateChanges:    cb.stateChanges,
		LastFailure:     cb.lastFailTime,
		LastStateChange: cb.lastStateChange,
	}
}

func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.setState(StateClosed)
	cb.failures = 0
	cb.requests = 0
	cb.lastFailTime = time.Time{}
}

func (cb *CircuitBreaker) String() string {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return fmt.Sprintf("CircuitBreaker(name=%s, state=%s, failures=%d/%d)",
		cb.name, cb.state.String(), cb.failures, cb.maxFailures)
}
