package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mmdr-storefront/internal/domain"
	reviewrepo "mmdr-storefront/internal/repository/review"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// unratedScore is the product rating shown while no approved review exists.
const unratedScore = 5

type ProductStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateRating(ctx context.Context, id string, avg float64, count int) error
}

type Service struct {
	reviews  reviewrepo.Repository
	products ProductStore
	logger   *zap.Logger
}

func New(reviews reviewrepo.Repository, products ProductStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reviews: reviews, products: products, logger: logger.Named("review_service")}
}

type CreateInput struct {
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type UpdateInput struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type Stats struct {
	Average float64 `json:"avgRating"`
	Total   int     `json:"totalReviews"`
}

type Listing struct {
	Reviews []domain.Review
	Stats   Stats
}

// List returns approved reviews, newest first, with the product's stored rating.
func (s *Service) List(ctx context.Context, productID string) (*Listing, error) {
	reviews, err := s.reviews.ListApproved(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := &Listing{Reviews: reviews}
	p, err := s.products.GetByID(ctx, productID)
	switch {
	case err == nil:
		out.Stats = Stats{Average: p.Rating, Total: p.RatingCount}
	case !isNotFound(err):
		return nil, err
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, productID string, in CreateInput) (*domain.Review, error) {
	name := strings.TrimSpace(in.UserName)
	if name == "" || in.Rating == 0 {
		return nil, domain.Invalid("Nombre y calificación son requeridos")
	}
	if err := checkRating(in.Rating); err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(in.Comment)
	if len([]rune(comment)) > domain.MaxReviewComment {
		return nil, domain.Invalid("El comentario no puede exceder %d caracteres", domain.MaxReviewComment)
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	created, err := s.reviews.Create(ctx, domain.Review{
		ProductID:  productID,
		UserName:   name,
		UserEmail:  strings.TrimSpace(in.UserEmail),
		Rating:     in.Rating,
		Comment:    comment,
		IsApproved: true,
	})
	if err != nil {
		return nil, err
	}
	if err := s.refreshRating(ctx, productID); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Review, error) {
	patch := reviewrepo.Patch{Rating: in.Rating}
	if in.Rating != nil {
		if err := checkRating(*in.Rating); err != nil {
			return nil, err
		}
	}
	if in.Comment != nil {
		c := strings.TrimSpace(*in.Comment)
		if len([]rune(c)) > domain.MaxReviewComment {
			return nil, domain.Invalid("El comentario no puede exceder %d caracteres", domain.MaxReviewComment)
		}
		patch.Comment = &c
	}
	updated, err := s.reviews.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := s.refreshRating(ctx, updated.ProductID); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return err
	}
	return s.refreshRating(ctx, deleted.ProductID)
}

func (s *Service) Moderate(ctx context.Context, id string, approved bool) (*domain.Review, error) {
	r, err := s.reviews.Moderate(ctx, id, approved)
	if err != nil {
		return nil, err
	}
	if err := s.refreshRating(ctx, r.ProductID); err != nil {
		return nil, err
	}
	return r, nil
}

// refreshRating writes the approved-review average, rounded to one decimal, onto the product.
func (s *Service) refreshRating(ctx context.Context, productID string) error {
	summary, err := s.reviews.RatingSummary(ctx, productID)
	if err != nil {
		return fmt.Errorf("rating summary: %w", err)
	}
	avg := float64(unratedScore)
	if summary.Count > 0 {
		avg, _ = decimal.NewFromFloat(summary.Average).Round(1).Float64()
	}
	if err := s.products.UpdateRating(ctx, productID, avg, summary.Count); err != nil {
		if isNotFound(err) {
			s.logger.Warn("rating target gone", zap.String("product", productID))
			return nil
		}
		return fmt.Errorf("update rating: %w", err)
	}
	s.logger.Debug("rating refreshed", zap.String("product", productID), zap.Float64("avg", avg), zap.Int("count", summary.Count))
	return nil
}

func checkRating(r int) error {
	if r < 1 || r > 5 {
		return domain.Invalid("La calificación debe ser entre 1 y 5")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
