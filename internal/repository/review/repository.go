package review

import (
	"context"

	"mmdr-storefront/internal/domain"
)

// Patch carries the optional fields of a review edit.
type Patch struct {
	Rating  *int
	Comment *string
}

type Repository interface {
	Create(ctx context.Context, r domain.Review) (*domain.Review, error)
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	ListApproved(ctx context.Context, productID string) ([]domain.Review, error)
	Update(ctx context.Context, id string, p Patch) (*domain.Review, error)
	Delete(ctx context.Context, id string) (*domain.Review, error)
	Moderate(ctx context.Context, id string, approved bool) (*domain.Review, error)
	RatingSummary(ctx context.Context, productID string) (*domain.RatingSummary, error)
}
