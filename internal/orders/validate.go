package orders

import (
	"github.com/jogardn/grubdash/internal/api"
	"github.com/jogardn/grubdash/pkg/models"
)

const statusMessage = "Order must have a status of pending, preparing, out-for-delivery, or delivered"

// validateOrder checks the fields shared by create and update and returns
// the order they describe, without id or status.
func validateOrder(p api.Payload) (models.Order, error) {
	for _, field := range []string{"deliverTo", "mobileNumber"} {
		if _, ok := p.String(field); !ok {
			return models.Order{}, api.Validation("Order must include a %s", field)
		}
	}
	if !p.Present("dishes") {
		return models.Order{}, api.Validation("Order must include a dishes")
	}

	items, ok := p.List("dishes")
	if !ok || len(items) == 0 {
		return models.Order{}, api.Validation("Order must include at least one dish")
	}

	lineItems := make([]models.LineItem, 0, len(items))
	for i, raw := range items {
		item, _ := api.Object(raw)
		quantity, ok := item.Integer("quantity")
		if !ok || quantity <= 0 {
			return models.Order{}, api.Validation("Dish %d must have a quantity that is an integer greater than 0", i)
		}
		lineItems = append(lineItems, lineItem(item, quantity))
	}

	deliverTo, _ := p.String("deliverTo")
	mobileNumber, _ := p.String("mobileNumber")
	return models.Order{
		DeliverTo:    deliverTo,
		MobileNumber: mobileNumber,
		Dishes:       lineItems,
	}, nil
}

// validateStatus is only applied on update; new orders start pending.
func validateStatus(p api.Payload) (string, error) {
	status, ok := p.String("status")
	if !ok || !models.IsValidStatus(status) {
		return "", api.Validation(statusMessage)
	}
	return status, nil
}

// lineItem keeps every member of item as sent, with quantity replaced by its
// validated value.
func lineItem(item api.Payload, quantity int) models.LineItem {
	li := models.LineItem{Quantity: quantity}
	for k, v := range item {
		if k == "quantity" {
			continue
		}
		if li.Fields == nil {
			li.Fields = make(map[string]interface{}, len(item))
		}
		li.Fields[k] = v
	}
	return li
}
