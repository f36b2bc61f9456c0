// Package server assembles the HTTP surface: the resource routes, health,
// the live feed and the router-level fallbacks.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jogardn/grubdash/internal/api"
	"github.com/jogardn/grubdash/internal/circuitbreaker"
	"github.com/jogardn/grubdash/internal/dishes"
	"github.com/jogardn/grubdash/internal/events"
	"github.com/jogardn/grubdash/internal/orders"
	"github.com/jogardn/grubdash/internal/websocket"
	"github.com/sirupsen/logrus"
)

const serviceName = "grubdash"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options holds everything the router serves. Hub, Breaker and DB are
// optional.
type Options struct {
	Dishes    dishes.Store
	Orders    orders.Store
	Publisher events.Publisher
	Hub       *websocket.Hub
	Breaker   *circuitbreaker.CircuitBreaker
	DB        Pinger
	Logger    *logrus.Logger
}

// NewHandler returns the router wrapped in logging and CORS, so requests the
// fallbacks answer are logged too.
func NewHandler(opts Options) http.Handler {
	router := mux.NewRouter()

	dishes.NewHandler(opts.Dishes, opts.Publisher, opts.Logger).Register(router)
	orders.NewHandler(opts.Orders, opts.Publisher, opts.Logger).Register(router)

	router.HandleFunc("/health", health(opts)).Methods(http.MethodGet)
	if opts.Hub != nil {
		router.HandleFunc("/ws", opts.Hub.HandleWebSocket).Methods(http.MethodGet)
	}

	router.NotFoundHandler = api.NotFoundHandler(opts.Logger)
	router.MethodNotAllowedHandler = api.MethodNotAllowedHandler(opts.Logger)

	return api.LoggingMiddleware(opts.Logger)(api.CORSMiddleware()(router))
}

type healthResponse struct {
	Status           string                  `json:"status"`
	Service          string                  `json:"service"`
	Error            string                  `json:"error,omitempty"`
	WebsocketClients int                     `json:"websocket_clients"`
	CircuitBreaker   *circuitbreaker.Metrics `json:"circuit_breaker,omitempty"`
}

func health(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "healthy", Service: serviceName}
		if opts.Hub != nil {
			resp.WebsocketClients = opts.Hub.ClientCount()
		}
		if opts.Breaker != nil {
			metrics := opts.Breaker.Metrics()
			resp.CircuitBreaker = &metrics
		}

		if opts.DB != nil {
			if err := opts.DB.PingContext(r.Context()); err != nil {
				opts.Logger.WithError(err).Warn("Health check database ping failed")
				resp.Status = "unhealthy"
				resp.Error = "database connection failed"
				api.RespondWithJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}

		api.RespondWithJSON(w, http.StatusOK, resp)
	}
}
