package product

import (
	"context"
	"errors"
	"testing"

	"mmdr-storefront/internal/domain"
	productrepo "mmdr-storefront/internal/repository/product"
)

type stubRepo struct {
	products   map[string]*domain.Product
	created    *domain.Product
	updated    *domain.Product
	listFilter productrepo.ListFilter
}

func newStubRepo() *stubRepo {
	return &stubRepo{products: map[string]*domain.Product{}}
}

func (s *stubRepo) List(_ context.Context, f productrepo.ListFilter) ([]domain.Product, int, error) {
	s.listFilter = f
	return []domain.Product{}, 0, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubRepo) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = "new"
	s.created = &p
	return &p, nil
}

func (s *stubRepo) Update(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.updated = &p
	return &p, nil
}

func (s *stubRepo) Delete(_ context.Context, id string) error {
	if _, ok := s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *stubRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

func (s *stubRepo) DecrementStock(context.Context, string, int) error { return nil }

func (s *stubRepo) UpdateRating(context.Context, string, float64, int) error { return nil }

func (s *stubRepo) Stats(context.Context) (*domain.ProductStats, error) {
	return &domain.ProductStats{Total: len(s.products)}, nil
}

func ptr[T any](v T) *T { return &v }

func validInput() Input {
	return Input{
		Name:        ptr("  Butaca Sparco "),
		Description: ptr("Butaca de competición"),
		Price:       ptr(int64(250000)),
		Category:    ptr(domain.CategorySeats),
		Stock:       ptr(4),
		Image:       ptr("seat.jpg"),
		Tags:        ptr([]string{"Sparco", "sparco", " fia "}),
	}
}

func TestServiceCreateDefaults(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, nil)

	got, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Butaca Sparco" || !got.IsActive || got.Rating != 5 {
		t.Fatalf("unexpected product %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "sparco" || got.Tags[1] != "fia" {
		t.Fatalf("unexpected tags %v", got.Tags)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc := New(newStubRepo(), nil)
	in := validInput()
	in.Category = ptr("motores")
	in.Discount = ptr(120)
	in.Image = ptr(" ")

	_, err := svc.Create(context.Background(), in)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"category", "discount", "image"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected %s to fail, got %v", field, verr.Fields)
		}
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput in chain")
	}
}

func TestServiceUpdatePartial(t *testing.T) {
	repo := newStubRepo()
	repo.products["p1"] = &domain.Product{
		ID: "p1", Name: "Volante", Description: "d", Price: 100, Category: domain.CategoryWheels,
		Stock: 1, Image: "w.jpg", IsActive: true, Rating: 4.5,
	}
	svc := New(repo, nil)

	got, err := svc.Update(context.Background(), "p1", Input{Stock: ptr(9), Featured: ptr(true)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Stock != 9 || !got.Featured || got.Name != "Volante" || got.Rating != 4.5 {
		t.Fatalf("unexpected update %+v", got)
	}

	if _, err := svc.Update(context.Background(), "missing", Input{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(context.Background(), "p1", Input{Stock: ptr(-1)}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid stock, got %v", err)
	}
}

func TestServiceListRejectsUnknownCategory(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, nil)

	if _, _, err := svc.List(context.Background(), productrepo.ListFilter{Category: "x"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.List(context.Background(), productrepo.ListFilter{Category: domain.CategoryOther, Page: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listFilter.Page != 2 {
		t.Fatalf("filter not passed through: %+v", repo.listFilter)
	}
}
