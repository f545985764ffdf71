package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Keys names the two storage entries behind one persisted list.
type Keys struct {
	Items     string
	ExpiresAt string
}

var (
	CartKeys      = Keys{Items: "mmdr_carrito", ExpiresAt: "mmdr_carrito_expiracion"}
	FavoritesKeys = Keys{Items: "mmdr_favoritos", ExpiresAt: "mmdr_favoritos_expiracion"}
)

const (
	CartTTL      = 24 * time.Hour
	FavoritesTTL = 30 * 24 * time.Hour

	CheckoutDraftKey = "mmdr_checkout_data"
	OutboxKey        = "mmdr_ventas_locales"
)

type listConfig struct {
	now    func() time.Time
	logger *zap.Logger
}

type ListOption func(*listConfig)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ListOption {
	return func(c *listConfig) { c.now = now }
}

func WithLogger(logger *zap.Logger) ListOption {
	return func(c *listConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ExpiringList persists a JSON array plus an epoch-millisecond expiry marker.
// Read failures never escape: a list that cannot be read is an empty list.
type ExpiringList[T any] struct {
	kv     KV
	keys   Keys
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewExpiringList[T any](kv KV, keys Keys, ttl time.Duration, opts ...ListOption) *ExpiringList[T] {
	cfg := listConfig{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ExpiringList[T]{
		kv:     kv,
		keys:   keys,
		ttl:    ttl,
		now:    cfg.now,
		logger: cfg.logger.With(zap.String("list", keys.Items)),
	}
}

func (l *ExpiringList[T]) TTL() time.Duration { return l.ttl }

// Load returns the stored items. A missing expiry marker counts as a fresh
// list and gets a new marker; a marker in the past wipes both keys.
func (l *ExpiringList[T]) Load(ctx context.Context) []T {
	expired, err := l.checkExpiry(ctx)
	if err != nil {
		l.logger.Warn("read expiry failed", zap.Error(err))
		return []T{}
	}
	if expired {
		return []T{}
	}

	raw, ok, err := l.kv.Get(ctx, l.keys.Items)
	if err != nil {
		l.logger.Warn("read items failed", zap.Error(err))
		return []T{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		l.logger.Warn("decode items failed, starting empty", zap.Error(err))
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// Expired checks the marker the same way Load does, clearing an expired list.
func (l *ExpiringList[T]) Expired(ctx context.Context) bool {
	expired, err := l.checkExpiry(ctx)
	if err != nil {
		l.logger.Warn("read expiry failed", zap.Error(err))
		return false
	}
	return expired
}

func (l *ExpiringList[T]) checkExpiry(ctx context.Context) (bool, error) {
	raw, ok, err := l.kv.Get(ctx, l.keys.ExpiresAt)
	if err != nil {
		return false, err
	}
	now := l.now()
	if !ok {
		return false, l.touch(ctx, now)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		l.logger.Warn("malformed expiry marker, resetting", zap.String("value", raw))
		return false, l.touch(ctx, now)
	}
	if now.UnixMilli() > ms {
		l.logger.Info("list expired, clearing", zap.Time("expired_at", time.UnixMilli(ms)))
		if err := l.Clear(ctx); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// Save writes items and pushes the expiry to now+TTL.
func (l *ExpiringList[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := l.kv.Set(ctx, l.keys.Items, string(data)); err != nil {
		return err
	}
	return l.touch(ctx, l.now())
}

// Clear removes both the items and the expiry marker.
func (l *ExpiringList[T]) Clear(ctx context.Context) error {
	return l.kv.Delete(ctx, l.keys.Items, l.keys.ExpiresAt)
}

// ExpiresAt reports the stored marker, if any.
func (l *ExpiringList[T]) ExpiresAt(ctx context.Context) (time.Time, bool) {
	raw, ok, err := l.kv.Get(ctx, l.keys.ExpiresAt)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (l *ExpiringList[T]) touch(ctx context.Context, now time.Time) error {
	exp := now.Add(l.ttl).UnixMilli()
	return l.kv.Set(ctx, l.keys.ExpiresAt, strconv.FormatInt(exp, 10))
}

// Document stores a single JSON value under one key, without expiry.
type Document[T any] struct {
	kv  KV
	key string
}

func NewDocument[T any](kv KV, key string) *Document[T] {
	return &Document[T]{kv: kv, key: key}
}

// Load returns ok=false when nothing is stored or the stored value is unreadable.
func (d *Document[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T
	raw, ok, err := d.kv.Get(ctx, d.key)
	if err != nil || !ok {
		return zero, false, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, false, nil
	}
	return v, true, nil
}

func (d *Document[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return d.kv.Set(ctx, d.key, string(data))
}

func (d *Document[T]) Clear(ctx context.Context) error {
	return d.kv.Delete(ctx, d.key)
}
