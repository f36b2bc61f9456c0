package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/jogardn/grubdash/internal/store"
	"github.com/jogardn/grubdash/pkg/models"
)

// openTestDB connects to TEST_DATABASE_URL and starts from empty tables.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE dishes, orders`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func TestDishStore(t *testing.T) {
	ctx := context.Background()
	s := NewDishStore(openTestDB(t))

	pasta := models.Dish{ID: "d1", Name: "Pasta", Description: "Tasty", Price: 10, ImageURL: "http://x"}
	soup := models.Dish{ID: "d2", Name: "Soup", Description: "Hot", Price: 4, ImageURL: "http://y"}
	for _, d := range []models.Dish{pasta, soup} {
		if err := s.Create(ctx, d); err != nil {
			t.Fatalf("create %s: %v", d.ID, err)
		}
	}
	if err := s.Create(ctx, pasta); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	got, err := s.Get(ctx, "d1")
	if err != nil || got != pasta {
		t.Fatalf("get: %+v %v", got, err)
	}

	pasta.Price = 12
	if err := s.Update(ctx, pasta); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(list, []models.Dish{pasta, soup}) {
		t.Errorf("Unexpected list %+v", list)
	}

	// Prices are validated up to 2^53-1, beyond a 32-bit column.
	big := models.Dish{ID: "d3", Name: "Caviar", Description: "Rare", Price: 3000000000, ImageURL: "http://z"}
	if err := s.Create(ctx, big); err != nil {
		t.Fatalf("create large price: %v", err)
	}
	if got, err := s.Get(ctx, "d3"); err != nil || got.Price != 3000000000 {
		t.Errorf("Expected price 3000000000, got %+v %v", got, err)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.Update(ctx, models.Dish{ID: "nope", Name: "x", Description: "x", Price: 1, ImageURL: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func isPending(o models.Order) bool {
	return o.Status == models.StatusPending
}

func TestOrderStore(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore(openTestDB(t))

	o := models.Order{
		ID:           "o1",
		DeliverTo:    "123 Main",
		MobileNumber: "555-0100",
		Status:       models.StatusPending,
		Dishes: []models.LineItem{{Quantity: 2, Fields: map[string]interface{}{
			"id":    json.Number("42"),
			"name":  "Pasta",
			"price": "10",
			"note":  "no cheese",
		}}},
	}
	if err := s.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, "o1")
	if err != nil || !reflect.DeepEqual(got, o) {
		t.Fatalf("get: %+v %v", got, err)
	}

	o.Status = models.StatusDelivered
	o.Dishes = append(o.Dishes, models.LineItem{Quantity: 1, Fields: map[string]interface{}{"name": "Soup"}})
	if err := s.Update(ctx, o); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 1 || !reflect.DeepEqual(list[0], o) {
		t.Fatalf("list: %+v %v", list, err)
	}

	if err := s.DeleteIf(ctx, "o1", isPending); !errors.Is(err, store.ErrPrecondition) {
		t.Fatalf("Expected ErrPrecondition deleting a delivered order, got %v", err)
	}
	if _, err := s.Get(ctx, "o1"); err != nil {
		t.Fatalf("Order removed despite failed condition: %v", err)
	}

	o.Status = models.StatusPending
	if err := s.Update(ctx, o); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteIf(ctx, "o1", isPending); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteIf(ctx, "o1", isPending); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "o1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
