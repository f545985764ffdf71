package product

import (
	"context"

	"mmdr-storefront/internal/domain"
)

// ListFilter narrows a catalog listing. Zero values mean "no filter".
type ListFilter struct {
	Category  string
	Search    string
	IsActive  *bool
	Featured  *bool
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
	UpdateRating(ctx context.Context, id string, avg float64, count int) error
	Stats(ctx context.Context) (*domain.ProductStats, error)
}
