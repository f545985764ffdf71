package review

import (
	"context"
	"testing"

	"mmdr-storefront/internal/db"
	"mmdr-storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("mongo container tests skipped in -short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	database, err := db.ConnectMongo(ctx, uri, "reviews_test")
	require.NoError(t, err)
	require.NoError(t, CreateIndexes(ctx, database))

	return NewMongo(database, nil)
}

func TestMongo_CreateAndList(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.Review{ProductID: "p1", UserName: "Ana", Rating: 4, IsApproved: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = repo.Create(ctx, domain.Review{ProductID: "p1", UserName: "Beto", Rating: 2, IsApproved: false})
	require.NoError(t, err)

	list, err := repo.ListApproved(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].UserName)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
}

func TestMongo_UpdateModerateDelete(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	r, err := repo.Create(ctx, domain.Review{ProductID: "p2", UserName: "Ana", Rating: 3, IsApproved: true})
	require.NoError(t, err)

	rating := 5
	comment := "Excelente"
	updated, err := repo.Update(ctx, r.ID, Patch{Rating: &rating, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "Excelente", updated.Comment)

	moderated, err := repo.Moderate(ctx, r.ID, false)
	require.NoError(t, err)
	assert.True(t, moderated.IsModerated)
	assert.False(t, moderated.IsApproved)

	deleted, err := repo.Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "p2", deleted.ProductID)

	_, err = repo.Delete(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMongo_RatingSummary(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, stars := range []int{5, 4, 4} {
		_, err := repo.Create(ctx, domain.Review{ProductID: "p3", UserName: "x", Rating: stars, IsApproved: true})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, domain.Review{ProductID: "p3", UserName: "y", Rating: 1, IsApproved: false})
	require.NoError(t, err)

	s, err := repo.RatingSummary(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 13.0/3.0, s.Average, 1e-9)
	assert.Equal(t, 2, s.ByStars[4])
	assert.Equal(t, 0, s.ByStars[1])
}
