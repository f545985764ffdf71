package product

import (
	"context"
	"strings"

	"mmdr-storefront/internal/domain"
	productrepo "mmdr-storefront/internal/repository/product"

	"go.uber.org/zap"
)

// defaultRating is what a product shows before its first approved review.
const defaultRating = 5

type Service struct {
	repo   productrepo.Repository
	logger *zap.Logger
}

func New(repo productrepo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger.Named("product_service")}
}

// Input is the writable part of a product. Nil pointers keep the stored value on update.
type Input struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Price         *int64    `json:"price"`
	OriginalPrice *int64    `json:"originalPrice"`
	Category      *string   `json:"category"`
	Stock         *int      `json:"stock"`
	Image         *string   `json:"image"`
	IsActive      *bool     `json:"isActive"`
	Discount      *int      `json:"discount"`
	Tags          *[]string `json:"tags"`
	Featured      *bool     `json:"featured"`
}

func (s *Service) List(ctx context.Context, f productrepo.ListFilter) ([]domain.Product, int, error) {
	if f.Category != "" && !domain.ValidCategory(f.Category) {
		return nil, 0, domain.Invalid("categoría desconocida: %s", f.Category)
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Product, error) {
	p := domain.Product{IsActive: true, Rating: defaultRating, Tags: []string{}}
	apply(&p, in)
	if err := validate(p); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("product created", zap.String("id", created.ID), zap.String("category", created.Category))
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Product, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(current, in)
	if err := validate(*current); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, *current)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (*domain.ProductStats, error) {
	return s.repo.Stats(ctx)
}

func apply(p *domain.Product, in Input) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.OriginalPrice != nil {
		p.OriginalPrice = in.OriginalPrice
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.Discount != nil {
		p.Discount = *in.Discount
	}
	if in.Tags != nil {
		p.Tags = normalizeTags(*in.Tags)
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func validate(p domain.Product) error {
	verr := domain.NewValidationError()
	if p.Name == "" {
		verr.Add("name", "El nombre del producto es requerido")
	} else if len([]rune(p.Name)) > 100 {
		verr.Add("name", "El nombre no puede exceder 100 caracteres")
	}
	if p.Description == "" {
		verr.Add("description", "La descripción es requerida")
	} else if len([]rune(p.Description)) > 500 {
		verr.Add("description", "La descripción no puede exceder 500 caracteres")
	}
	if p.Price < 0 {
		verr.Add("price", "El precio no puede ser negativo")
	}
	if p.OriginalPrice != nil && *p.OriginalPrice < 0 {
		verr.Add("originalPrice", "El precio original no puede ser negativo")
	}
	if p.Category == "" {
		verr.Add("category", "La categoría es requerida")
	} else if !domain.ValidCategory(p.Category) {
		verr.Add("category", "Categoría no válida")
	}
	if p.Stock < 0 {
		verr.Add("stock", "El stock no puede ser negativo")
	}
	if p.Image == "" {
		verr.Add("image", "La imagen es requerida")
	}
	if p.Discount < 0 || p.Discount > 100 {
		verr.Add("discount", "El descuento debe estar entre 0 y 100")
	}
	return verr.Err()
}
