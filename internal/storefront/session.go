// Package storefront assembles one shopper's client-side state: cart,
// favorites, checkout draft and outbox, all kept in a single key-value store.
package storefront

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"mmdr-storefront/internal/cart"
	"mmdr-storefront/internal/checkout"
	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/favorites"
	"mmdr-storefront/internal/outbox"
	"mmdr-storefront/internal/salesclient"
	"mmdr-storefront/internal/storage"

	"go.uber.org/zap"
)

// Remote is the backend a session talks to. *salesclient.Client satisfies it.
type Remote interface {
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListProducts(ctx context.Context, q salesclient.ProductQuery) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Options struct {
	PaymentDelay time.Duration
	// UniformClamp caps add and increment at the maximum quantity too.
	UniformClamp bool
	Now          func() time.Time
	Rand         *rand.Rand
	Logger       *zap.Logger
}

type Session struct {
	Cart      *cart.Engine
	Favorites *favorites.List
	Outbox    *outbox.Outbox

	drafts   *storage.Document[checkout.Draft]
	remote   Remote
	payments *checkout.Simulator
	now      func() time.Time
	rng      *rand.Rand
	logger   *zap.Logger
}

// Open loads the persisted state from kv. Expired carts and favorites come back empty.
func Open(ctx context.Context, kv storage.KV, remote Remote, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	listOpts := []storage.ListOption{storage.WithClock(now), storage.WithLogger(logger)}

	cartOpts := []cart.Option{cart.WithLogger(logger.Named("cart")), cart.WithClock(now)}
	if opts.UniformClamp {
		cartOpts = append(cartOpts, cart.WithUniformClamp())
	}

	return &Session{
		Cart: cart.New(ctx,
			storage.NewExpiringList[domain.LineItem](kv, storage.CartKeys, storage.CartTTL, listOpts...),
			cartOpts...),
		Favorites: favorites.New(ctx,
			storage.NewExpiringList[domain.Favorite](kv, storage.FavoritesKeys, storage.FavoritesTTL, listOpts...),
			logger.Named("favorites")),
		Outbox:   outbox.New(kv, logger.Named("outbox")),
		drafts:   storage.NewDocument[checkout.Draft](kv, storage.CheckoutDraftKey),
		remote:   remote,
		payments: checkout.NewSimulator(opts.Rand, opts.PaymentDelay),
		now:      now,
		rng:      opts.Rand,
		logger:   logger,
	}
}

func (s *Session) product(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.remote.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// AddToCart looks the product up and adds one unit of it.
func (s *Session) AddToCart(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !s.Cart.AddProduct(ctx, p.Ref()) {
		return nil, domain.Invalid("producto sin id")
	}
	return p, nil
}

// ToggleFavorite reports whether the product is a favorite afterwards.
func (s *Session) ToggleFavorite(ctx context.Context, productID string) (bool, error) {
	if s.Favorites.Contains(productID) {
		s.Favorites.Remove(ctx, productID)
		return false, nil
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return false, err
	}
	return s.Favorites.Toggle(ctx, p.Ref()), nil
}

// Recommended lists featured products that are not already in the cart.
func (s *Session) Recommended(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 4
	}
	products, err := s.remote.ListProducts(ctx, salesclient.ProductQuery{Featured: true, Limit: limit + s.Cart.Len()})
	if err != nil {
		return nil, fmt.Errorf("list recommended: %w", err)
	}
	out := make([]domain.Product, 0, limit)
	for _, p := range products {
		if s.Cart.Contains(p.ID) || !p.IsActive {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Checkout resumes a stored draft or starts a new one from the cart.
func (s *Session) Checkout(ctx context.Context) (*checkout.Orchestrator, error) {
	opts := []checkout.Option{checkout.WithClock(s.now)}
	if s.rng != nil {
		opts = append(opts, checkout.WithRand(s.rng))
	}
	return checkout.Resume(ctx, checkout.Deps{
		Cart:     s.Cart,
		Sales:    s.remote,
		Outbox:   s.Outbox,
		Drafts:   s.drafts,
		Payments: s.payments,
		Logger:   s.logger.Named("checkout"),
	}, opts...)
}

// AbandonCheckout drops the stored draft. The cart is left alone.
func (s *Session) AbandonCheckout(ctx context.Context) error {
	return s.drafts.Clear(ctx)
}

func (s *Session) Retrier(interval time.Duration) *outbox.Retrier {
	return outbox.NewRetrier(s.Outbox, s.remote, interval, s.logger.Named("outbox_retrier"))
}
