package sale

import (
	"context"
	"time"

	"mmdr-storefront/internal/domain"
)

// Range bounds a report by creation time. Nil ends are open.
type Range struct {
	From *time.Time
	To   *time.Time
}

type ListFilter struct {
	Range
	Status    domain.SaleStatus
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

type Repository interface {
	Create(ctx context.Context, s domain.Sale) (*domain.Sale, error)
	GetByID(ctx context.Context, id string) (*domain.Sale, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Sale, error)
	List(ctx context.Context, f ListFilter) ([]domain.Sale, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.SaleStatus, notes string) (*domain.Sale, error)

	Stats(ctx context.Context, r Range) (*domain.SaleStats, error)
	CountByStatus(ctx context.Context, r Range) ([]domain.StatusCount, error)
	CountByMethod(ctx context.Context, r Range) ([]domain.MethodCount, error)
	TopProducts(ctx context.Context, limit int, r Range) ([]domain.TopProduct, error)
	ByPeriod(ctx context.Context, from, to time.Time, g domain.Granularity) ([]domain.PeriodBucket, error)
}
