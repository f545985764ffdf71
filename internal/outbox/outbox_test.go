package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type permanentErr struct{}

func (permanentErr) Error() string   { return "El número de orden ya existe" }
func (permanentErr) Retryable() bool { return false }

type stubSubmitter struct {
	results map[string]error
	calls   []string
}

func (s *stubSubmitter) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.calls = append(s.calls, sale.OrderNumber)
	if err := s.results[sale.OrderNumber]; err != nil {
		return nil, err
	}
	return &sale, nil
}

func sale(n string) domain.Sale {
	return domain.Sale{OrderNumber: n, Totals: domain.Totals{Subtotal: 1000, Shipping: 5000, Total: 6000}}
}

func TestOutbox_EnqueuePersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	ob := New(kv, nil)

	require.NoError(t, ob.Enqueue(ctx, sale("A"), errors.New("timeout")))
	require.NoError(t, ob.Enqueue(ctx, sale("B"), nil))

	pending, err := New(kv, nil).Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "A", pending[0].Sale.OrderNumber)
	assert.Equal(t, "timeout", pending[0].LastError)
	assert.NotEmpty(t, pending[0].ID)

	raw, ok, _ := kv.Get(ctx, storage.OutboxKey)
	require.True(t, ok)
	assert.Contains(t, raw, `"numeroOrden":"A"`)
}

func TestOutbox_Remove(t *testing.T) {
	ctx := context.Background()
	ob := New(storage.NewMemoryKV(), nil)
	require.NoError(t, ob.Enqueue(ctx, sale("A"), nil))
	pending, _ := ob.Pending(ctx)

	require.NoError(t, ob.Remove(ctx, pending[0].ID))
	assert.Zero(t, ob.Len(ctx))
	assert.ErrorIs(t, ob.Remove(ctx, "nope"), domain.ErrNotFound)
}

func TestRetrier_Flush(t *testing.T) {
	ctx := context.Background()
	ob := New(storage.NewMemoryKV(), nil)
	for _, n := range []string{"OK", "DUP", "DOWN"} {
		require.NoError(t, ob.Enqueue(ctx, sale(n), errors.New("first try")))
	}
	sub := &stubSubmitter{results: map[string]error{
		"DUP":  permanentErr{},
		"DOWN": errors.New("503"),
	}}
	r := NewRetrier(ob, sub, time.Minute, nil)

	report, err := r.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushReport{Delivered: 1, Dropped: 1, Failed: 1}, report)

	pending, err := ob.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "DOWN", pending[0].Sale.OrderNumber)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "503", pending[0].LastError)
}

func TestRetrier_FlushKeepsEntriesAddedMeanwhile(t *testing.T) {
	ctx := context.Background()
	ob := New(storage.NewMemoryKV(), nil)
	require.NoError(t, ob.Enqueue(ctx, sale("A"), nil))

	sub := &enqueueingSubmitter{ob: ob}
	_, err := NewRetrier(ob, sub, time.Minute, nil).Flush(ctx)
	require.NoError(t, err)

	pending, _ := ob.Pending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, "LATE", pending[0].Sale.OrderNumber)
}

type enqueueingSubmitter struct{ ob *Outbox }

func (s *enqueueingSubmitter) CreateSale(ctx context.Context, sl domain.Sale) (*domain.Sale, error) {
	if err := s.ob.Enqueue(ctx, sale("LATE"), nil); err != nil {
		return nil, err
	}
	return &sl, nil
}

func TestRetrier_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ob := New(storage.NewMemoryKV(), nil)
	require.NoError(t, ob.Enqueue(ctx, sale("A"), nil))
	sub := &stubSubmitter{}

	done := make(chan struct{})
	go func() {
		NewRetrier(ob, sub, 5*time.Millisecond, nil).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return ob.Len(context.Background()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retrier did not stop")
	}
}
