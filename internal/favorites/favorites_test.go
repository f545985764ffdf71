package favorites

import (
	"context"
	"testing"
	"time"

	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_AddRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	l := New(ctx, storage.NewExpiringList[domain.Favorite](storage.NewMemoryKV(), storage.FavoritesKeys, storage.FavoritesTTL), nil)

	ref := domain.ProductRef{ID: "p1", Name: "Butaca", Price: 150000, Category: domain.CategorySeats}
	assert.True(t, l.Add(ctx, ref))
	assert.False(t, l.Add(ctx, ref))
	assert.False(t, l.Add(ctx, domain.ProductRef{}))
	assert.Equal(t, 1, l.Count())
}

func TestList_ToggleAndPersist(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := storage.NewExpiringList[domain.Favorite](kv, storage.FavoritesKeys, storage.FavoritesTTL)
	l := New(ctx, store, nil)

	var seen []int
	l.OnChange(func(items []domain.Favorite) { seen = append(seen, len(items)) })

	ref := domain.ProductRef{ID: "p1", Name: "Butaca", Category: domain.CategorySeats}
	assert.True(t, l.Toggle(ctx, ref))
	assert.True(t, l.Toggle(ctx, domain.ProductRef{ID: "p2", Name: "Volante"}))
	assert.False(t, l.Toggle(ctx, ref))

	reloaded := New(ctx, store, nil)
	require.Equal(t, 1, reloaded.Count())
	assert.Equal(t, "p2", reloaded.Items()[0].ID)
	assert.Equal(t, []int{1, 2, 1}, seen)
}

func TestList_ExpiresAfterThirtyDays(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := storage.NewExpiringList[domain.Favorite](storage.NewMemoryKV(), storage.FavoritesKeys, storage.FavoritesTTL,
		storage.WithClock(func() time.Time { return now }))

	l := New(ctx, store, nil)
	l.Add(ctx, domain.ProductRef{ID: "p1"})

	now = now.Add(29 * 24 * time.Hour)
	assert.Equal(t, 1, New(ctx, store, nil).Count())

	now = now.Add(2 * 24 * time.Hour)
	assert.Zero(t, New(ctx, store, nil).Count())
}

func TestList_Clear(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	l := New(ctx, storage.NewExpiringList[domain.Favorite](kv, storage.FavoritesKeys, storage.FavoritesTTL), nil)
	l.Add(ctx, domain.ProductRef{ID: "p1"})

	l.Clear(ctx)
	assert.Zero(t, l.Count())
	_, ok, _ := kv.Get(ctx, storage.FavoritesKeys.Items)
	assert.False(t, ok)
}
