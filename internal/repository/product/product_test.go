package product

import (
	"context"
	"errors"
	"os"
	"testing"

	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_CreateListGet(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)

	seat, err := repo.Create(ctx, domain.Product{
		Name: "Butaca Sparco", Description: "Butaca de competición", Price: 250000,
		Category: domain.CategorySeats, Stock: 3, Image: "seat.jpg", IsActive: true, Rating: 5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, domain.Product{
		Name: "Volante Momo", Description: "Volante deportivo", Price: 90000,
		Category: domain.CategoryWheels, Stock: 0, Image: "wheel.jpg", IsActive: false, Rating: 5,
		Tags: []string{"momo", "cuero"},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	active := true
	list, total, err := repo.List(ctx, ListFilter{IsActive: &active})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != seat.ID {
		t.Fatalf("unexpected list total=%d items=%+v", total, list)
	}

	list, total, err = repo.List(ctx, ListFilter{Search: "volante"})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if total != 1 || list[0].Name != "Volante Momo" || len(list[0].Tags) != 2 {
		t.Fatalf("unexpected search result %+v", list)
	}

	list, _, err = repo.List(ctx, ListFilter{SortBy: "price", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("List sorted: %v", err)
	}
	if len(list) != 2 || list[0].Price > list[1].Price {
		t.Fatalf("expected ascending price, got %+v", list)
	}

	got, err := repo.GetByID(ctx, seat.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != seat.Name || got.Stock != 3 {
		t.Fatalf("unexpected product %+v", got)
	}

	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.Active != 1 || stats.Inactive != 1 || stats.OutOfStock != 1 || len(stats.ByCategory) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPostgres_DecrementStock(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	p, err := repo.Create(ctx, domain.Product{
		Name: "Shifter", Description: "Palanca", Price: 1000, Category: domain.CategoryAccessories,
		Stock: 2, Image: "x.jpg", IsActive: true, Rating: 5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.DecrementStock(ctx, p.ID, 2); err != nil {
		t.Fatalf("DecrementStock: %v", err)
	}
	err = repo.DecrementStock(ctx, p.ID, 1)
	var stockErr *domain.StockError
	if !errors.As(err, &stockErr) || stockErr.Available != 0 {
		t.Fatalf("expected StockError, got %v", err)
	}
}

func TestPostgres_UpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	first, err := repo.Upsert(ctx, domain.Product{
		Name: "Pedalera", Description: "v1", Price: 100, Category: domain.CategoryElectronics, Stock: 1, Image: "p.jpg", IsActive: true,
	})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	second, err := repo.Upsert(ctx, domain.Product{
		Name: "Pedalera", Description: "v2", Price: 200, Category: domain.CategoryElectronics, Stock: 4, Image: "p.jpg", IsActive: true,
	})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if second.ID != first.ID || second.Description != "v2" || second.Price != 200 || second.Rating != 5 {
		t.Fatalf("unexpected upsert result %+v", second)
	}

	if err := repo.UpdateRating(ctx, first.ID, 4.5, 2); err != nil {
		t.Fatalf("UpdateRating: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE sale_lines, sales, products RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
