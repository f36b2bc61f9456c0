// Package seed loads the initial dishes and orders from JSON files.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jogardn/grubdash/internal/store"
	"github.com/jogardn/grubdash/pkg/models"
)

// Creator is the part of a store seeding needs.
type Creator[T any] interface {
	Create(ctx context.Context, record T) error
}

// Dishes inserts the dishes listed in the JSON array at path and returns how
// many were added. An empty path loads nothing.
func Dishes(ctx context.Context, path string, s Creator[models.Dish]) (int, error) {
	return load(ctx, path, s)
}

// Orders works like Dishes. Seeded orders keep the status they are given.
func Orders(ctx context.Context, path string, s Creator[models.Order]) (int, error) {
	return load(ctx, path, s)
}

func load[T store.Record[T]](ctx context.Context, path string, s Creator[T]) (int, error) {
	if path == "" {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	added := 0
	for i, record := range records {
		if record.Key() == "" {
			return added, fmt.Errorf("seed file %s: record %d has no id", path, i)
		}
		err := s.Create(ctx, record)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed %s: %w", record.Key(), err)
		}
		added++
	}
	return added, nil
}
