package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jogardn/grubdash/internal/store"
	"github.com/jogardn/grubdash/pkg/models"
)

// OrderStore keeps line items as a JSONB array on the order row; they are
// copies, not references to the dishes table.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const selectOrder = `SELECT id, deliver_to, mobile_number, status, dishes FROM orders`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var (
		o      models.Order
		dishes []byte
	)
	if err := row.Scan(&o.ID, &o.DeliverTo, &o.MobileNumber, &o.Status, &dishes); err != nil {
		return models.Order{}, err
	}
	if err := json.Unmarshal(dishes, &o.Dishes); err != nil {
		return models.Order{}, fmt.Errorf("decode line items of order %s: %w", o.ID, err)
	}
	return o, nil
}

func (s *OrderStore) List(ctx context.Context) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, selectOrder+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *OrderStore) Get(ctx context.Context, id string) (models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, fmt.Errorf("get order %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (s *OrderStore) Create(ctx context.Context, o models.Order) error {
	dishes, err := json.Marshal(o.Dishes)
	if err != nil {
		return fmt.Errorf("encode line items of order %s: %w", o.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (id, deliver_to, mobile_number, status, dishes) VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.DeliverTo, o.MobileNumber, o.Status, string(dishes))
	if isUniqueViolation(err) {
		return fmt.Errorf("create order %s: %w", o.ID, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, err)
	}
	return nil
}

func (s *OrderStore) Update(ctx context.Context, o models.Order) error {
	dishes, err := json.Marshal(o.Dishes)
	if err != nil {
		return fmt.Errorf("encode line items of order %s: %w", o.ID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET deliver_to = $2, mobile_number = $3, status = $4, dishes = $5 WHERE id = $1`,
		o.ID, o.DeliverTo, o.MobileNumber, o.Status, string(dishes))
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if err := checkAffected(res, store.ErrNotFound); err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	return nil
}

func (s *OrderStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if err := checkAffected(res, store.ErrNotFound); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	return nil
}

// DeleteIf locks the row, checks cond against its current state and deletes
// it in the same transaction.
func (s *OrderStore) DeleteIf(ctx context.Context, id string, cond func(models.Order) bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	defer tx.Rollback()

	o, err := scanOrder(tx.QueryRowContext(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete order %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if cond != nil && !cond(o) {
		return fmt.Errorf("delete order %s: %w", id, store.ErrPrecondition)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	return nil
}
