package models

type Dish struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	ImageURL    string `json:"image_url"`
}

func (d Dish) Clone() Dish {
	return d
}

func (d Dish) Key() string {
	return d.ID
}
