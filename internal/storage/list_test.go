package storage

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID  string `json:"id"`
	Qty int    `json:"cantidad"`
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestList(t *testing.T) (*ExpiringList[item], *MemoryKV, *clock) {
	t.Helper()
	kv := NewMemoryKV()
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	return NewExpiringList[item](kv, CartKeys, CartTTL, WithClock(clk.Now)), kv, clk
}

func TestExpiringList_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	list, _, clk := newTestList(t)

	in := []item{{ID: "p1", Qty: 1}, {ID: "p2", Qty: 3}}
	require.NoError(t, list.Save(ctx, in))

	clk.t = clk.t.Add(23 * time.Hour)
	assert.Equal(t, in, list.Load(ctx))
}

func TestExpiringList_SaveRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	list, kv, clk := newTestList(t)

	require.NoError(t, list.Save(ctx, []item{{ID: "p1", Qty: 1}}))
	raw, ok, _ := kv.Get(ctx, CartKeys.ExpiresAt)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(clk.t.Add(CartTTL).UnixMilli(), 10), raw)

	clk.t = clk.t.Add(time.Hour)
	require.NoError(t, list.Save(ctx, []item{{ID: "p1", Qty: 2}}))
	exp, ok := list.ExpiresAt(ctx)
	require.True(t, ok)
	assert.Equal(t, clk.t.Add(CartTTL).UnixMilli(), exp.UnixMilli())
}

func TestExpiringList_ExpiredIsCleared(t *testing.T) {
	ctx := context.Background()
	list, kv, clk := newTestList(t)

	require.NoError(t, list.Save(ctx, []item{{ID: "p1", Qty: 1}}))
	clk.t = clk.t.Add(CartTTL + time.Millisecond)

	assert.Empty(t, list.Load(ctx))
	_, ok, _ := kv.Get(ctx, CartKeys.Items)
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, CartKeys.ExpiresAt)
	assert.False(t, ok)
}

func TestExpiringList_ExactlyAtExpiryStillValid(t *testing.T) {
	ctx := context.Background()
	list, _, clk := newTestList(t)

	require.NoError(t, list.Save(ctx, []item{{ID: "p1", Qty: 1}}))
	clk.t = clk.t.Add(CartTTL)

	assert.Len(t, list.Load(ctx), 1)
}

func TestExpiringList_MissingMarkerIsFresh(t *testing.T) {
	ctx := context.Background()
	list, kv, clk := newTestList(t)

	require.NoError(t, kv.Set(ctx, CartKeys.Items, `[{"id":"p1","cantidad":2}]`))

	got := list.Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Qty)

	exp, ok := list.ExpiresAt(ctx)
	require.True(t, ok)
	assert.Equal(t, clk.t.Add(CartTTL).UnixMilli(), exp.UnixMilli())
}

func TestExpiringList_CorruptItemsLoadEmpty(t *testing.T) {
	ctx := context.Background()
	list, kv, _ := newTestList(t)

	require.NoError(t, kv.Set(ctx, CartKeys.Items, `{not json`))
	got := list.Load(ctx)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExpiringList_MalformedMarkerResets(t *testing.T) {
	ctx := context.Background()
	list, kv, clk := newTestList(t)

	require.NoError(t, kv.Set(ctx, CartKeys.Items, `[{"id":"p1","cantidad":1}]`))
	require.NoError(t, kv.Set(ctx, CartKeys.ExpiresAt, "soon"))

	assert.Len(t, list.Load(ctx), 1)
	exp, ok := list.ExpiresAt(ctx)
	require.True(t, ok)
	assert.Equal(t, clk.t.Add(CartTTL).UnixMilli(), exp.UnixMilli())
}

func TestExpiringList_Clear(t *testing.T) {
	ctx := context.Background()
	list, kv, _ := newTestList(t)

	require.NoError(t, list.Save(ctx, []item{{ID: "p1", Qty: 1}}))
	require.NoError(t, list.Clear(ctx))

	_, ok, _ := kv.Get(ctx, CartKeys.Items)
	assert.False(t, ok)
	_, ok = list.ExpiresAt(ctx)
	assert.False(t, ok)
}

func TestDocument_LoadSaveClear(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	doc := NewDocument[item](kv, CheckoutDraftKey)

	_, ok, err := doc.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, doc.Save(ctx, item{ID: "p9", Qty: 4}))
	got, ok, err := doc.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p9", got.ID)

	require.NoError(t, doc.Clear(ctx))
	_, ok, _ = doc.Load(ctx)
	assert.False(t, ok)
}
