// Package postgres keeps dishes and orders in PostgreSQL for deployments
// that want the collections to outlive the process.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS dishes (
		position    BIGSERIAL,
		id          VARCHAR(255) PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		price       BIGINT NOT NULL CHECK (price > 0),
		image_url   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		position      BIGSERIAL,
		id            VARCHAR(255) PRIMARY KEY,
		deliver_to    TEXT NOT NULL,
		mobile_number TEXT NOT NULL,
		status        VARCHAR(50) NOT NULL,
		dishes        JSONB NOT NULL
	)`,
	`ALTER TABLE dishes ALTER COLUMN price TYPE BIGINT`,
	`CREATE INDEX IF NOT EXISTS idx_dishes_position ON dishes(position)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_position ON orders(position)`,
}

// Open connects with the lib/pq driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, query := range schema {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// checkAffected maps "no row touched" to notFound.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
