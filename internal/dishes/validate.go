package dishes

import (
	"github.com/jogardn/grubdash/internal/api"
	"github.com/jogardn/grubdash/pkg/models"
)

// Checked in this order; the first failure is reported.
var requiredFields = []string{"name", "description", "price", "image_url"}

// validateDish checks a create or update payload and returns the dish it
// describes, without an id.
func validateDish(p api.Payload) (models.Dish, error) {
	for _, field := range requiredFields {
		if field == "price" {
			if !p.Present(field) {
				return models.Dish{}, api.Validation("Dish must include a %s", field)
			}
			continue
		}
		if _, ok := p.String(field); !ok {
			return models.Dish{}, api.Validation("Dish must include a %s", field)
		}
	}

	price, ok := p.Integer("price")
	if !ok || price <= 0 {
		return models.Dish{}, api.Validation("Dish must have a price that is an integer greater than 0")
	}

	name, _ := p.String("name")
	description, _ := p.String("description")
	imageURL, _ := p.String("image_url")
	return models.Dish{
		Name:        name,
		Description: description,
		Price:       price,
		ImageURL:    imageURL,
	}, nil
}
