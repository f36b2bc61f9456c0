package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Order statuses. Any update may move an order to any of them; only a
// pending order can be deleted.
const (
	StatusPending        = "pending"
	StatusPreparing      = "preparing"
	StatusOutForDelivery = "out-for-delivery"
	StatusDelivered      = "delivered"
)

var orderStatuses = []string{
	StatusPending,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
}

type Order struct {
	ID           string     `json:"id"`
	DeliverTo    string     `json:"deliverTo"`
	MobileNumber string     `json:"mobileNumber"`
	Status       string     `json:"status,omitempty"`
	Dishes       []LineItem `json:"dishes"`
}

// LineItem is one entry of an order's dishes, kept as the client sent it.
// Only Quantity is interpreted; every other member (id, name, price, or
// anything else) lives in Fields with its JSON value untouched.
type LineItem struct {
	Quantity int
	Fields   map[string]interface{}
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(li.Fields)+1)
	for k, v := range li.Fields {
		out[k] = v
	}
	out["quantity"] = li.Quantity
	return json.Marshal(out)
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var fields map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}

	li.Quantity = 0
	if q, ok := fields["quantity"].(json.Number); ok {
		f, err := q.Float64()
		if err != nil || f != math.Trunc(f) {
			return fmt.Errorf("line item quantity %s is not an integer", q)
		}
		li.Quantity = int(f)
	}
	delete(fields, "quantity")
	if len(fields) == 0 {
		fields = nil
	}
	li.Fields = fields
	return nil
}

// Clone returns a deep copy so neither the line items nor their fields are
// shared.
func (o Order) Clone() Order {
	if o.Dishes != nil {
		items := make([]LineItem, len(o.Dishes))
		for i, item := range o.Dishes {
			items[i] = LineItem{Quantity: item.Quantity}
			if item.Fields != nil {
				items[i].Fields = cloneValue(item.Fields).(map[string]interface{})
			}
		}
		o.Dishes = items
	}
	return o
}

// cloneValue copies the containers a decoded JSON value can hold.
func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, e := range t {
			l[i] = cloneValue(e)
		}
		return l
	default:
		return v
	}
}

func (o Order) Key() string {
	return o.ID
}

// IsValidStatus reports whether s is one of the four order statuses.
func IsValidStatus(s string) bool {
	for _, status := range orderStatuses {
		if s == status {
			return true
		}
	}
	return false
}
