package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jogardn/grubdash/internal/store"
	"github.com/jogardn/grubdash/pkg/models"
)

type DishStore struct {
	db *sql.DB
}

func NewDishStore(db *sql.DB) *DishStore {
	return &DishStore{db: db}
}

func (s *DishStore) List(ctx context.Context) ([]models.Dish, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, price, image_url FROM dishes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}
	defer rows.Close()

	dishes := []models.Dish{}
	for rows.Next() {
		var d models.Dish
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.ImageURL); err != nil {
			return nil, fmt.Errorf("scan dish: %w", err)
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

func (s *DishStore) Get(ctx context.Context, id string) (models.Dish, error) {
	var d models.Dish
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, image_url FROM dishes WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Dish{}, fmt.Errorf("get dish %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return models.Dish{}, fmt.Errorf("get dish %s: %w", id, err)
	}
	return d, nil
}

func (s *DishStore) Create(ctx context.Context, d models.Dish) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dishes (id, name, description, price, image_url) VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.Name, d.Description, d.Price, d.ImageURL)
	if isUniqueViolation(err) {
		return fmt.Errorf("create dish %s: %w", d.ID, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create dish %s: %w", d.ID, err)
	}
	return nil
}

func (s *DishStore) Update(ctx context.Context, d models.Dish) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dishes SET name = $2, description = $3, price = $4, image_url = $5 WHERE id = $1`,
		d.ID, d.Name, d.Description, d.Price, d.ImageURL)
	if err != nil {
		return fmt.Errorf("update dish %s: %w", d.ID, err)
	}
	if err := checkAffected(res, store.ErrNotFound); err != nil {
		return fmt.Errorf("update dish %s: %w", d.ID, err)
	}
	return nil
}
