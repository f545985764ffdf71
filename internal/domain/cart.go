package domain

import (
	"encoding/json"
	"time"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// ClampQuantity forces n into [MinQuantity, MaxQuantity].
func ClampQuantity(n int) int {
	if n < MinQuantity {
		return MinQuantity
	}
	if n > MaxQuantity {
		return MaxQuantity
	}
	return n
}

// ProductRef is what a product card hands to the cart or favorites list.
type ProductRef struct {
	ID       string
	Name     string
	Price    int64
	Image    string
	Category string
}

// LineItem is one product line in a cart. Prices are whole pesos.
type LineItem struct {
	ID        string
	Name      string
	UnitPrice int64
	ImageURL  string
	Quantity  int
	AddedAt   time.Time
}

func (l LineItem) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

type lineItemJSON struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	Price    int64  `json:"precio"`
	Image    string `json:"imagen"`
	Quantity int    `json:"cantidad"`
	AddedAt  int64  `json:"agregadoEl"`
}

func (l LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineItemJSON{
		ID:       l.ID,
		Name:     l.Name,
		Price:    l.UnitPrice,
		Image:    l.ImageURL,
		Quantity: l.Quantity,
		AddedAt:  l.AddedAt.UnixMilli(),
	})
}

func (l *LineItem) UnmarshalJSON(data []byte) error {
	var w lineItemJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = LineItem{
		ID:        w.ID,
		Name:      w.Name,
		UnitPrice: w.Price,
		ImageURL:  w.Image,
		Quantity:  w.Quantity,
		AddedAt:   time.UnixMilli(w.AddedAt),
	}
	return nil
}

// Favorite is a saved product in the wishlist.
type Favorite struct {
	ID       string
	Name     string
	Price    int64
	Image    string
	Category string
	AddedAt  time.Time
}

type favoriteJSON struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	Price    int64  `json:"precio"`
	Image    string `json:"imagen"`
	Category string `json:"categoria"`
	AddedAt  int64  `json:"agregadoEl"`
}

func (f Favorite) MarshalJSON() ([]byte, error) {
	return json.Marshal(favoriteJSON{
		ID:       f.ID,
		Name:     f.Name,
		Price:    f.Price,
		Image:    f.Image,
		Category: f.Category,
		AddedAt:  f.AddedAt.UnixMilli(),
	})
}

func (f *Favorite) UnmarshalJSON(data []byte) error {
	var w favoriteJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = Favorite{
		ID:       w.ID,
		Name:     w.Name,
		Price:    w.Price,
		Image:    w.Image,
		Category: w.Category,
		AddedAt:  time.UnixMilli(w.AddedAt),
	}
	return nil
}
