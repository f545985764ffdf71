package domain

import "time"

// Category values accepted by the catalog.
const (
	CategorySeats       = "asientos"
	CategoryWheels      = "volantes"
	CategoryElectronics = "electronica"
	CategorySuspension  = "suspension"
	CategoryAccessories = "accesorios"
	CategoryOther       = "otros"
)

var Categories = []string{
	CategorySeats,
	CategoryWheels,
	CategoryElectronics,
	CategorySuspension,
	CategoryAccessories,
	CategoryOther,
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Product struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	OriginalPrice *int64    `json:"originalPrice,omitempty"`
	Category      string    `json:"category"`
	Stock         int       `json:"stock"`
	Image         string    `json:"image"`
	IsActive      bool      `json:"isActive"`
	Rating        float64   `json:"rating"`
	RatingCount   int       `json:"ratingCount"`
	Discount      int       `json:"discount"`
	Tags          []string  `json:"tags"`
	Featured      bool      `json:"featured"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Ref is the subset of a product that the cart and favorites keep.
func (p Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image, Category: p.Category}
}

type CategoryCount struct {
	Category string `json:"_id"`
	Count    int    `json:"count"`
}

type ProductStats struct {
	Total      int             `json:"total"`
	Active     int             `json:"active"`
	Inactive   int             `json:"inactive"`
	OutOfStock int             `json:"outOfStock"`
	ByCategory []CategoryCount `json:"byCategory"`
}
