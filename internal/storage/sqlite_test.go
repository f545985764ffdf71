package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storefront.db")

	kv, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, CartKeys.Items, `[{"id":"p1","cantidad":1}]`))
	require.NoError(t, kv.Set(ctx, CartKeys.Items, `[{"id":"p1","cantidad":2}]`))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer kv.Close()

	v, ok, err := kv.Get(ctx, CartKeys.Items)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"p1","cantidad":2}]`, v)

	require.NoError(t, kv.Delete(ctx, CartKeys.Items))
	_, ok, err = kv.Get(ctx, CartKeys.Items)
	require.NoError(t, err)
	assert.False(t, ok)
}
