// Package cart holds the shopper's cart: an ordered list of line items that is
// persisted after every change and announced to subscribed observers.
package cart

import (
	"context"
	"strings"
	"time"

	"mmdr-storefront/internal/domain"

	"go.uber.org/zap"
)

// Store is the persistence the engine writes through on every mutation.
// *storage.ExpiringList[domain.LineItem] satisfies it.
type Store interface {
	Load(ctx context.Context) []domain.LineItem
	Save(ctx context.Context, items []domain.LineItem) error
	Clear(ctx context.Context) error
	Expired(ctx context.Context) bool
}

// Summary is what observers receive after each change.
type Summary struct {
	Items    []domain.LineItem
	Count    int
	Subtotal int64
}

type Observer interface {
	CartChanged(Summary)
}

type ObserverFunc func(Summary)

func (f ObserverFunc) CartChanged(s Summary) { f(s) }

type Option func(*Engine)

// WithUniformClamp caps adds and increments at domain.MaxQuantity too.
// Without it only SetQuantity clamps.
func WithUniformClamp() Option {
	return func(e *Engine) { e.clampAll = true }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type subscription struct {
	id       int
	observer Observer
}

// Engine is the only writer of cart state. It is meant to be owned by one
// session and driven from one goroutine; it does no locking.
type Engine struct {
	store     Store
	items     []domain.LineItem
	observers []subscription
	nextSub   int
	clampAll  bool
	now       func() time.Time
	logger    *zap.Logger
}

// New hydrates an engine from store.
func New(ctx context.Context, store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	stored := store.Load(ctx)
	e.items = e.sanitize(stored)
	if len(e.items) != len(stored) {
		e.logger.Warn("stored cart had invalid lines",
			zap.Int("stored", len(stored)), zap.Int("kept", len(e.items)))
	}
	e.logger.Debug("cart loaded", zap.Int("items", len(e.items)))
	return e
}

// sanitize drops lines without an id or with a quantity below 1 and merges
// repeated ids into the first occurrence. Quantities are capped at
// domain.MaxQuantity only under WithUniformClamp, matching what increments
// can reach.
func (e *Engine) sanitize(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" || it.Quantity < domain.MinQuantity {
			continue
		}
		if i, ok := seen[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		seen[it.ID] = len(out)
		out = append(out, it)
	}
	if e.clampAll {
		for i := range out {
			out[i].Quantity = domain.ClampQuantity(out[i].Quantity)
		}
	}
	return out
}

// Subscribe registers o and returns a function that removes it.
func (e *Engine) Subscribe(o Observer) func() {
	e.nextSub++
	id := e.nextSub
	e.observers = append(e.observers, subscription{id: id, observer: o})
	return func() {
		kept := make([]subscription, 0, len(e.observers))
		for _, s := range e.observers {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		e.observers = kept
	}
}

// AddProduct merges by id, bumping the quantity of an existing line by one,
// or appends a new line with quantity 1. It fails only when ref has no id.
func (e *Engine) AddProduct(ctx context.Context, ref domain.ProductRef) bool {
	if strings.TrimSpace(ref.ID) == "" {
		e.logger.Warn("add product without id")
		return false
	}
	if i := e.indexOf(ref.ID); i >= 0 {
		e.items[i].Quantity = e.bump(e.items[i].Quantity)
	} else {
		e.items = append(e.items, domain.LineItem{
			ID:        ref.ID,
			Name:      ref.Name,
			UnitPrice: ref.Price,
			ImageURL:  ref.Image,
			Quantity:  1,
			AddedAt:   e.now(),
		})
	}
	e.commit(ctx)
	return true
}

// SetQuantity overwrites a line's quantity, clamped to [1,99]. n <= 0 removes the line.
func (e *Engine) SetQuantity(ctx context.Context, id string, n int) bool {
	i := e.indexOf(id)
	if i < 0 {
		return false
	}
	if n <= 0 {
		return e.RemoveProduct(ctx, id)
	}
	e.items[i].Quantity = domain.ClampQuantity(n)
	e.commit(ctx)
	return true
}

func (e *Engine) Increment(ctx context.Context, id string) bool {
	i := e.indexOf(id)
	if i < 0 {
		return false
	}
	e.items[i].Quantity = e.bump(e.items[i].Quantity)
	e.commit(ctx)
	return true
}

// Decrement lowers a line by one; a line at 1 is removed instead.
func (e *Engine) Decrement(ctx context.Context, id string) bool {
	i := e.indexOf(id)
	if i < 0 {
		return false
	}
	if e.items[i].Quantity <= 1 {
		return e.RemoveProduct(ctx, id)
	}
	e.items[i].Quantity--
	e.commit(ctx)
	return true
}

func (e *Engine) RemoveProduct(ctx context.Context, id string) bool {
	i := e.indexOf(id)
	if i < 0 {
		return false
	}
	e.items = append(e.items[:i], e.items[i+1:]...)
	e.commit(ctx)
	return true
}

// Clear empties the cart and removes its storage entries.
func (e *Engine) Clear(ctx context.Context) {
	e.items = nil
	if err := e.store.Clear(ctx); err != nil {
		e.logger.Warn("clear cart storage failed", zap.Error(err))
	}
	e.notify()
}

// CheckExpiration clears the in-memory cart when the stored one has expired.
// Callers run it periodically for long-lived sessions.
func (e *Engine) CheckExpiration(ctx context.Context) bool {
	if !e.store.Expired(ctx) {
		return false
	}
	e.logger.Info("cart expired")
	e.items = nil
	e.notify()
	return true
}

func (e *Engine) Subtotal() int64 {
	var total int64
	for _, it := range e.items {
		total += it.Subtotal()
	}
	return total
}

// Total adds taxes and shipping to the subtotal.
func (e *Engine) Total(taxes, shipping int64) int64 {
	return e.Subtotal() + taxes + shipping
}

func (e *Engine) TotalItemCount() int {
	n := 0
	for _, it := range e.items {
		n += it.Quantity
	}
	return n
}

// Snapshot returns a copy; changing it does not touch the cart.
func (e *Engine) Snapshot() []domain.LineItem {
	out := make([]domain.LineItem, len(e.items))
	copy(out, e.items)
	return out
}

func (e *Engine) Len() int { return len(e.items) }

func (e *Engine) Contains(id string) bool { return e.indexOf(id) >= 0 }

func (e *Engine) QuantityOf(id string) int {
	if i := e.indexOf(id); i >= 0 {
		return e.items[i].Quantity
	}
	return 0
}

func (e *Engine) Summary() Summary {
	return Summary{Items: e.Snapshot(), Count: e.TotalItemCount(), Subtotal: e.Subtotal()}
}

func (e *Engine) bump(q int) int {
	q++
	if e.clampAll {
		q = domain.ClampQuantity(q)
	}
	return q
}

func (e *Engine) indexOf(id string) int {
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

// commit persists and then notifies. Storage failures are logged, not returned.
func (e *Engine) commit(ctx context.Context) {
	if err := e.store.Save(ctx, e.items); err != nil {
		e.logger.Warn("save cart failed", zap.Error(err))
	}
	e.notify()
}

func (e *Engine) notify() {
	if len(e.observers) == 0 {
		return
	}
	s := e.Summary()
	for _, sub := range e.observers {
		sub.observer.CartChanged(s)
	}
}
