// Package orders serves the /orders resource.
package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jogardn/grubdash/internal/api"
	"github.com/jogardn/grubdash/internal/events"
	"github.com/jogardn/grubdash/internal/nextid"
	"github.com/jogardn/grubdash/internal/store"
	"github.com/jogardn/grubdash/pkg/models"
	"github.com/sirupsen/logrus"
)

type Store interface {
	List(ctx context.Context) ([]models.Order, error)
	Get(ctx context.Context, id string) (models.Order, error)
	Create(ctx context.Context, order models.Order) error
	Update(ctx context.Context, order models.Order) error
	// DeleteIf removes the order only if cond holds for its stored state.
	DeleteIf(ctx context.Context, id string, cond func(models.Order) bool) error
}

type Handler struct {
	store     Store
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewHandler wires the order routes to store. publisher may be nil.
func NewHandler(store Store, publisher events.Publisher, logger *logrus.Logger) *Handler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Handler{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/orders", api.Handle(h.logger, h.list)).Methods(http.MethodGet)
	router.HandleFunc("/orders", api.Handle(h.logger, h.create)).Methods(http.MethodPost)
	router.HandleFunc("/orders/{orderId}", api.Handle(h.logger, h.withOrder(h.read))).Methods(http.MethodGet)
	router.HandleFunc("/orders/{orderId}", api.Handle(h.logger, h.withOrder(h.update))).Methods(http.MethodPut)
	router.HandleFunc("/orders/{orderId}", api.Handle(h.logger, h.withOrder(h.destroy))).Methods(http.MethodDelete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) error {
	orders, err := h.store.List(r.Context())
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	api.RespondWithData(w, http.StatusOK, orders)
	return nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	payload, err := api.DecodeData(r)
	if err != nil {
		return err
	}
	order, err := validateOrder(payload)
	if err != nil {
		return err
	}

	order.ID = nextid.Generate(func(id string) bool {
		_, err := h.store.Get(ctx, id)
		return err == nil
	})
	order.Status = models.StatusPending
	if err := h.store.Create(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"items_count": len(order.Dishes),
	}).Info("Order created")
	h.publish(ctx, events.NewOrderEvent(events.OrderCreated, order.ID, order))

	api.RespondWithData(w, http.StatusCreated, order)
	return nil
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) error {
	api.RespondWithData(w, http.StatusOK, orderFromContext(r.Context()))
	return nil
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	order := orderFromContext(ctx)

	payload, err := api.DecodeData(r)
	if err != nil {
		return err
	}
	updated, err := validateOrder(payload)
	if err != nil {
		return err
	}
	if updated.Status, err = validateStatus(payload); err != nil {
		return err
	}
	if err := payload.CheckRouteID("Order", mux.Vars(r)["orderId"]); err != nil {
		return err
	}

	updated.ID = order.ID
	if err := h.store.Update(ctx, updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Order does not exist: %s", order.ID)
		}
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}

	h.logger.WithFields(logrus.Fields{
		"order_id":   updated.ID,
		"old_status": order.Status,
		"new_status": updated.Status,
	}).Info("Order updated")
	h.publish(ctx, events.NewOrderEvent(events.OrderUpdated, updated.ID, updated))

	api.RespondWithData(w, http.StatusOK, updated)
	return nil
}

const notPendingMessage = "An order cannot be deleted unless it is in '%s' status."

func isPending(o models.Order) bool {
	return o.Status == models.StatusPending
}

func (h *Handler) destroy(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	order := orderFromContext(ctx)

	if !isPending(order) {
		return api.Conflict(notPendingMessage, models.StatusPending)
	}
	// The order may have moved on since the lookup; the store rechecks.
	err := h.store.DeleteIf(ctx, order.ID, isPending)
	switch {
	case errors.Is(err, store.ErrPrecondition):
		return api.Conflict(notPendingMessage, models.StatusPending)
	case errors.Is(err, store.ErrNotFound):
		return api.NotFound("Order does not exist: %s", order.ID)
	case err != nil:
		return fmt.Errorf("delete order %s: %w", order.ID, err)
	}

	h.logger.WithField("order_id", order.ID).Info("Order deleted")
	h.publish(ctx, events.NewOrderEvent(events.OrderDeleted, order.ID, nil))

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type orderKey struct{}

// withOrder resolves the route's orderId and hands the order to next
// through the request context.
func (h *Handler) withOrder(next api.HandlerFunc) api.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		orderID := mux.Vars(r)["orderId"]
		order, err := h.store.Get(r.Context(), orderID)
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Order does not exist: %s", orderID)
		}
		if err != nil {
			return fmt.Errorf("look up order %s: %w", orderID, err)
		}
		return next(w, r.WithContext(context.WithValue(r.Context(), orderKey{}, order)))
	}
}

func orderFromContext(ctx context.Context) models.Order {
	order, _ := ctx.Value(orderKey{}).(models.Order)
	return order
}

func (h *Handler) publish(ctx context.Context, event events.Event) {
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"order_id":   event.ID,
		}).Warn("Failed to publish order event")
	}
}
