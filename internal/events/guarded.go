package events

import (
	"context"
	"errors"

	"github.com/jogardn/grubdash/internal/circuitbreaker"
	"github.com/sirupsen/logrus"
)

// GuardedPublisher drops events while its breaker is open instead of
// waiting on a broker that keeps failing.
type GuardedPublisher struct {
	next    Publisher
	breaker *circuitbreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewGuardedPublisher(next Publisher, breaker *circuitbreaker.CircuitBreaker, logger *logrus.Logger) *GuardedPublisher {
	return &GuardedPublisher{next: next, breaker: breaker, logger: logger}
}

func (g *GuardedPublisher) Publish(ctx context.Context, event Event) error {
	err := g.breaker.Execute(func() error {
		return g.next.Publish(ctx, event)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		g.logger.WithFields(logrus.Fields{
			"event_type": event.Type,
			"id":         event.ID,
		}).Warn("Circuit breaker open, dropping event")
	}
	return err
}

func (g *GuardedPublisher) Metrics() circuitbreaker.Metrics {
	return g.breaker.Metrics()
}
