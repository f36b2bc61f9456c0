// Package events publishes resource changes to interested parties: Kafka
// topics and the websocket live feed.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	DishCreated  = "dish.created"
	DishUpdated  = "dish.updated"
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	OrderDeleted = "order.deleted"
)

const (
	ResourceDish  = "dish"
	ResourceOrder = "order"
)

type Event struct {
	Type      string      `json:"type"`
	Resource  string      `json:"resource"`
	ID        string      `json:"id"`
	Data      interface{} `json:"data,omitempty"`
	EventTime time.Time   `json:"event_time"`
}

func NewDishEvent(eventType, id string, data interface{}) Event {
	return Event{Type: eventType, Resource: ResourceDish, ID: id, Data: data, EventTime: time.Now().UTC()}
}

func NewOrderEvent(eventType, id string, data interface{}) Event {
	return Event{Type: eventType, Resource: ResourceOrder, ID: id, Data: data, EventTime: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers each event to every publisher, even when some fail.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
