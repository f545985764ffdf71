package favorites

import (
	"context"
	"strings"
	"time"

	"mmdr-storefront/internal/domain"

	"go.uber.org/zap"
)

// Store is satisfied by *storage.ExpiringList[domain.Favorite].
type Store interface {
	Load(ctx context.Context) []domain.Favorite
	Save(ctx context.Context, items []domain.Favorite) error
	Clear(ctx context.Context) error
}

// List is the shopper's wishlist. Single owner, no locking.
type List struct {
	store     Store
	items     []domain.Favorite
	listeners []func([]domain.Favorite)
	now       func() time.Time
	logger    *zap.Logger
}

func New(ctx context.Context, store Store, logger *zap.Logger) *List {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &List{
		store:  store,
		items:  store.Load(ctx),
		now:    time.Now,
		logger: logger,
	}
}

// OnChange registers fn to run after every change.
func (l *List) OnChange(fn func([]domain.Favorite)) {
	l.listeners = append(l.listeners, fn)
}

// Add returns false for an empty id or a product that is already saved.
func (l *List) Add(ctx context.Context, ref domain.ProductRef) bool {
	if strings.TrimSpace(ref.ID) == "" || l.Contains(ref.ID) {
		return false
	}
	l.items = append(l.items, domain.Favorite{
		ID:       ref.ID,
		Name:     ref.Name,
		Price:    ref.Price,
		Image:    ref.Image,
		Category: ref.Category,
		AddedAt:  l.now(),
	})
	l.commit(ctx)
	return true
}

func (l *List) Remove(ctx context.Context, id string) bool {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.commit(ctx)
			return true
		}
	}
	return false
}

// Toggle adds or removes ref and reports whether it is saved afterwards.
func (l *List) Toggle(ctx context.Context, ref domain.ProductRef) bool {
	if l.Contains(ref.ID) {
		l.Remove(ctx, ref.ID)
		return false
	}
	return l.Add(ctx, ref)
}

func (l *List) Contains(id string) bool {
	for _, f := range l.items {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (l *List) Items() []domain.Favorite {
	out := make([]domain.Favorite, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Count() int { return len(l.items) }

func (l *List) Clear(ctx context.Context) {
	l.items = nil
	if err := l.store.Clear(ctx); err != nil {
		l.logger.Warn("clear favorites failed", zap.Error(err))
	}
	l.notify()
}

func (l *List) commit(ctx context.Context) {
	if err := l.store.Save(ctx, l.items); err != nil {
		l.logger.Warn("save favorites failed", zap.Error(err))
	}
	l.notify()
}

func (l *List) notify() {
	for _, fn := range l.listeners {
		fn(l.Items())
	}
}
