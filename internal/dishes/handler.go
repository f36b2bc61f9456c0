// Package dishes serves the /dishes resource.
package dishes

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

// Store is the dish collection. Dishes are never deleted.
type Store interface {
	List(ctx context.Context) ([]models.Dish, error)
	Get(ctx context.Context, id string) (models.Dish, error)
	Create(ctx context.Context, dish models.Dish) error
	Update(ctx context.Context, dish models.Dish) error
}

type Handler struct {
	store     Store
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewHandler wires the dish routes to store. publisher may be nil.
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
	router.HandleFunc("/dishes", api.Handle(h.logger, h.list)).Methods(http.MethodGet)
	router.HandleFunc("/dishes", api.Handle(h.logger, h.create)).Methods(http.MethodPost)
	router.HandleFunc("/dishes/{dishId}", api.Handle(h.logger, h.withDish(h.read))).Methods(http.MethodGet)
	router.HandleFunc("/dishes/{dishId}", api.Handle(h.logger, h.withDish(h.update))).Methods(http.MethodPut)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) error {
	dishes, err := h.store.List(r.Context())
	if err != nil {
		return fmt.Errorf("list dishes: %w", err)
	}
	api.RespondWithData(w, http.StatusOK, dishes)
	return nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	payload, err := api.DecodeData(r)
	if err != nil {
		return err
	}
	dish, err := validateDish(payload)
	if err != nil {
		return err
	}

	dish.ID = nextid.Generate(func(id string) bool {
		_, err := h.store.Get(ctx, id)
		return err == nil
	})
	if err := h.store.Create(ctx, dish); err != nil {
		return fmt.Errorf("create dish: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"dish_id": dish.ID,
		"name":    dish.Name,
		"price":   dish.Price,
	}).Info("Dish created")
	h.publish(ctx, events.NewDishEvent(events.DishCreated, dish.ID, dish))

	api.RespondWithData(w, http.StatusCreated, dish)
	return nil
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) error {
	api.RespondWithData(w, http.StatusOK, dishFromContext(r.Context()))
	return nil
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	dish := dishFromContext(ctx)

	payload, err := api.DecodeData(r)
	if err != nil {
		return err
	}
	updated, err := validateDish(payload)
	if err != nil {
		return err
	}
	if err := payload.CheckRouteID("Dish", mux.Vars(r)["dishId"]); err != nil {
		return err
	}

	updated.ID = dish.ID
	if err := h.store.Update(ctx, updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Dish not found: %s", dish.ID)
		}
		return fmt.Errorf("update dish %s: %w", dish.ID, err)
	}

	h.logger.WithField("dish_id", updated.ID).Info("Dish updated")
	h.publish(ctx, events.NewDishEvent(events.DishUpdated, updated.ID, updated))

	api.RespondWithData(w, http.StatusOK, updated)
	return nil
}

type dishKey struct{}

// withDish resolves the route's dishId and hands the dish to next through
// the request context.
func (h *Handler) withDish(next api.HandlerFunc) api.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		dishID := mux.Vars(r)["dishId"]
		dish, err := h.store.Get(r.Context(), dishID)
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFound("Dish not found: %s", dishID)
		}
		if err != nil {
			return fmt.Errorf("look up dish %s: %w", dishID, err)
		}
		return next(w, r.WithContext(context.WithValue(r.Context(), dishKey{}, dish)))
	}
}

func dishFromContext(ctx context.Context) models.Dish {
	dish, _ := ctx.Value(dishKey{}).(models.Dish)
	return dish
}

// publish never fails the request; the change is already stored.
func (h *Handler) publish(ctx context.Context, event events.Event) {
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"dish_id":    event.ID,
		}).Warn("Failed to publish dish event")
	}
}
