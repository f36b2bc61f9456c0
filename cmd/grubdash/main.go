package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jogardn/grubdash/internal/circuitbreaker"
	"github.com/jogardn/grubdash/internal/config"
	"github.com/jogardn/grubdash/internal/dishes"
	"github.com/jogardn/grubdash/internal/events"
	"github.com/jogardn/grubdash/internal/orders"
	"github.com/jogardn/grubdash/internal/seed"
	"github.com/jogardn/grubdash/internal/server"
	"github.com/jogardn/grubdash/internal/store"
	"github.com/jogardn/grubdash/internal/store/postgres"
	"github.com/jogardn/grubdash/internal/websocket"
	"github.com/jogardn/grubdash/pkg/models"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		dishStore  dishes.Store
		orderStore orders.Store
		db         *sql.DB
	)
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			logger.WithError(err).Fatal("Failed to create tables")
		}
		dishStore = postgres.NewDishStore(db)
		orderStore = postgres.NewOrderStore(db)
		logger.Info("Using PostgreSQL storage")
	} else {
		dishStore = store.NewMemory[models.Dish]()
		orderStore = store.NewMemory[models.Order]()
		logger.Info("Using in-memory storage")
	}

	n, err := seed.Dishes(ctx, cfg.DishesSeedFile, dishStore)
	if err != nil {
		logger.WithError(err).Fatal("Failed to seed dishes")
	}
	m, err := seed.Orders(ctx, cfg.OrdersSeedFile, orderStore)
	if err != nil {
		logger.WithError(err).Fatal("Failed to seed orders")
	}
	logger.WithFields(logrus.Fields{"dishes": n, "orders": m}).Info("Seed data loaded")

	// Change events
	hub := websocket.NewHub("grubdash", logger)
	go hub.Run(ctx)

	publishers := events.Fanout{hub}
	var breaker *circuitbreaker.CircuitBreaker
	if cfg.KafkaBrokers != "" {
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer kafka.Close()

		breaker = circuitbreaker.New(circuitbreaker.Config{
			Name:        "kafka",
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeout,
			MaxRequests: cfg.BreakerRequests,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				logger.WithFields(logrus.Fields{
					"circuit_breaker": name,
					"from":            from.String(),
					"to":              to.String(),
				}).Warn("Circuit breaker state changed")
			},
		}, logger)
		publishers = append(publishers, events.NewGuardedPublisher(kafka, breaker, logger))
	}

	opts := server.Options{
		Dishes:    dishStore,
		Orders:    orderStore,
		Publisher: publishers,
		Hub:       hub,
		Breaker:   breaker,
		Logger:    logger,
	}
	if db != nil {
		opts.DB = db
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.NewHandler(opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting grubdash")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}
