package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func fail() error    { return errors.New("broker unreachable") }
func succeed() error { return nil }

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name        string
		scenario    func(t *testing.T, cb *CircuitBreaker)
		expectedEnd State
	}{
		{
			name: "stays_closed_below_max_failures",
			scenario: func(t *testing.T, cb *CircuitBreaker) {
				cb.Execute(fail)
				cb.Execute(fail)
			},
			expectedEnd: StateClosed,
		},
		{
			name: "closed_to_open_after_max_failures",
			scenario: func(t *testing.T, cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					if err := cb.Execute(fail); err == nil {
						t.Error("Expected failure")
					}
				}
			},
			expectedEnd: StateOpen,
		},
		{
			name: "success_resets_consecutive_failures",
			scenario: func(t *testing.T, cb *CircuitBreaker) {
				cb.Execute(fail)
				cb.Execute(fail)
				cb.Execute(succeed)
				cb.Execute(fail)
				cb.Execute(fail)
			},
			expectedEnd: StateClosed,
		},
		{
			name: "open_to_closed_after_timeout_and_success",
			scenario: func(t *testing.T, cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(fail)
				}
				time.Sleep(60 * time.Millisecond)
				if err := cb.Execute(succeed); err != nil {
					t.Errorf("Expected trial call to run, got %v", err)
				}
			},
			expectedEnd: StateClosed,
		},
		{
			name: "half_open_failure_reopens",
			scenario: func(t *testing.T, cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(fail)
				}
				time.Sleep(60 * time.Millisecond)
				cb.Execute(fail)
			},
			expectedEnd: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := New(Config{Name: tt.name, MaxFailures: 3, Timeout: 50 * time.Millisecond, MaxRequests: 1}, quietLogger())
			tt.scenario(t, cb)
			if cb.State() != tt.expectedEnd {
				t.Errorf("Expected %s, got %s", tt.expectedEnd, cb.State())
			}
		})
	}
}

func TestOpenBreakerRejectsWithoutCalling(t *testing.T) {
	cb := New(Config{Name: "reject", MaxFailures: 1, Timeout: time.Minute, MaxRequests: 1}, quietLogger())
	cb.Execute(fail)

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("Expected ErrCircuitBreakerOpen, got %v", err)
	}
	if called {
		t.Error("Function ran while breaker was open")
	}

	m := cb.Metrics()
	if m.TotalRequests != 1 {
		t.Errorf("Rejected calls must not count as requests, got %d", m.TotalRequests)
	}
}

func TestHalfOpenLimitsTrialCalls(t *testing.T) {
	cb := New(Config{Name: "half-open", MaxFailures: 1, Timeout: 20 * time.Millisecond, MaxRequests: 1}, quietLogger())
	cb.Execute(fail)
	time.Sleep(30 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Expected second trial call to be rejected, got %v", err)
	}

	close(release)
	wg.Wait()
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after successful trial, got %s", cb.State())
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name            string
		config          Config
		expectedName    string
		expectedMax     int
		expectedTimeout time.Duration
		expectedReqs    int
	}{
		{
			name:            "valid_config",
			config:          Config{Name: "kafka", MaxFailures: 5, Timeout: 30 * time.Second, MaxRequests: 3},
			expectedName:    "kafka",
			expectedMax:     5,
			expectedTimeout: 30 * time.Second,
			expectedReqs:    3,
		},
		{
			name:            "zero_values_get_defaults",
			config:          Config{},
			expectedName:    "unnamed",
			expectedMax:     defaultMaxFailures,
			expectedTimeout: defaultTimeout,
			expectedReqs:    defaultMaxRequests,
		},
		{
			name:            "too_large_values_are_capped",
			config:          Config{Name: "big", MaxFailures: 5000, Timeout: time.Hour, MaxRequests: 500},
			expectedName:    "big",
			expectedMax:     maxMaxFailures,
			expectedTimeout: maxTimeout,
			expectedReqs:    maxMaxRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := New(tt.config, quietLogger())
			if cb.name != tt.expectedName {
				t.Errorf("Expected name %q, got %q", tt.expectedName, cb.name)
			}
			if cb.maxFailures != tt.expectedMax {
				t.Errorf("Expected MaxFailures %d, got %d", tt.expectedMax, cb.maxFailures)
			}
			if cb.timeout != tt.expectedTimeout {
				t.Errorf("Expected Timeout %s, got %s", tt.expectedTimeout, cb.timeout)
			}
			if cb.maxRequests != tt.expectedReqs {
				t.Errorf("Expected MaxRequests %d, got %d", tt.expectedReqs, cb.maxRequests)
			}
		})
	}
}

func TestCompleteConfigLogsNoWarnings(t *testing.T) {
	logger, hook := test.NewNullLogger()

	New(Config{Name: "kafka", MaxFailures: 5, Timeout: 30 * time.Second, MaxRequests: 1}, logger)
	if n := len(hook.AllEntries()); n != 0 {
		t.Errorf("Expected no log entries, got %d: %s", n, hook.LastEntry().Message)
	}

	New(Config{Name: "kafka", MaxFailures: 5, Timeout: 30 * time.Second}, logger)
	if entry := hook.LastEntry(); entry == nil || entry.Data["field"] != "max_requests" {
		t.Errorf("Expected a max_requests warning, got %v", entry)
	}
}

func TestStateChangeCallback(t *testing.T) {
	type change struct{ from, to State }
	changes := make(chan change, 4)

	cb := New(Config{
		Name:        "callback",
		MaxFailures: 1,
		Timeout:     10 * time.Millisecond,
		MaxRequests: 1,
		OnStateChange: func(name string, from, to State) {
			changes <- change{from, to}
		},
	}, quietLogger())

	cb.Execute(fail)
	select {
	case c := <-changes:
		if c.from != StateClosed || c.to != StateOpen {
			t.Errorf("Expected closed->open, got %s->%s", c.from, c.to)
		}
	case <-time.After(time.Second):
		t.Fatal("State change callback not called")
	}
}

func TestStateChangeCallbackPanicIsRecovered(t *testing.T) {
	done := make(chan struct{})
	cb := New(Config{
		Name:        "panic",
		MaxFailures: 1,
		Timeout:     time.Minute,
		MaxRequests: 1,
		OnStateChange: func(name string, from, to State) {
			defer close(done)
			panic("boom")
		},
	}, quietLogger())

	cb.Execute(fail)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("State change callback not called")
	}
	if cb.State() != StateOpen {
		t.Errorf("Expected open, got %s", cb.State())
	}
}

func TestMetricsAndReset(t *testing.T) {
	cb := New(Config{Name: "metrics", MaxFailures: 2, Timeout: time.Minute, MaxRequests: 1}, quietLogger())

	cb.Execute(succeed)
	cb.Execute(succeed)
	cb.Execute(fail)
	cb.Execute(fail)
	cb.Execute(succeed) // rejected

	m := cb.Metrics()
	if m.TotalRequests != 4 || m.TotalSuccesses != 2 || m.TotalFailures != 2 {
		t.Errorf("Unexpected totals: %+v", m)
	}
	if m.State != "open" || m.StateChanges != 1 {
		t.Errorf("Unexpected state metrics: %+v", m)
	}

	cb.Reset()
	m = cb.Metrics()
	if m.State != "closed" || m.Failures != 0 || !m.LastFailure.IsZero() {
		t.Errorf("Unexpected metrics after reset: %+v", m)
	}
	if err := cb.Execute(succeed); err != nil {
		t.Errorf("Expected call to run after reset, got %v", err)
	}
}

func TestConcurrentMetricsConsistency(t *testing.T) {
	cb := New(Config{Name: "concurrent", MaxFailures: 1000, Timeout: time.Minute, MaxRequests: 1}, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if (i+j)%3 == 0 {
					cb.Execute(fail)
				} else {
					cb.Execute(succeed)
				}
			}
		}(i)
	}
	wg.Wait()

	m := cb.Metrics()
	if m.TotalRequests != 1000 {
		t.Errorf("Expected 1000 requests, got %d", m.TotalRequests)
	}
	if m.TotalRequests != m.TotalFailures+m.TotalSuccesses {
		t.Errorf("Inconsistent metrics: %+v", m)
	}
}
