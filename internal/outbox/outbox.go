// Package outbox keeps sales that could not be delivered to the sales
// service and resubmits them later.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Entry struct {
	ID         string      `json:"id"`
	Sale       domain.Sale `json:"venta"`
	Attempts   int         `json:"intentos"`
	LastError  string      `json:"ultimoError,omitempty"`
	EnqueuedAt time.Time   `json:"fechaRespaldo"`
}

// Outbox is a durable list stored under storage.OutboxKey.
type Outbox struct {
	mu     sync.Mutex
	doc    *storage.Document[[]Entry]
	now    func() time.Time
	logger *zap.Logger
}

func New(kv storage.KV, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{
		doc:    storage.NewDocument[[]Entry](kv, storage.OutboxKey),
		now:    time.Now,
		logger: logger,
	}
}

// Enqueue appends sale with the error that kept it from being delivered.
func (o *Outbox) Enqueue(ctx context.Context, sale domain.Sale, cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entries, err := o.load(ctx)
	if err != nil {
		return err
	}
	e := Entry{ID: uuid.NewString(), Sale: sale, EnqueuedAt: o.now().UTC()}
	if cause != nil {
		e.LastError = cause.Error()
	}
	entries = append(entries, e)
	if err := o.doc.Save(ctx, entries); err != nil {
		return fmt.Errorf("save outbox: %w", err)
	}
	o.logger.Info("sale stored locally", zap.String("order_number", sale.OrderNumber), zap.Int("pending", len(entries)))
	return nil
}

func (o *Outbox) Pending(ctx context.Context) ([]Entry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.load(ctx)
}

func (o *Outbox) Len(ctx context.Context) int {
	entries, err := o.Pending(ctx)
	if err != nil {
		return 0
	}
	return len(entries)
}

func (o *Outbox) Remove(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	entries, err := o.load(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			return o.doc.Save(ctx, entries)
		}
	}
	return domain.ErrNotFound
}

func (o *Outbox) load(ctx context.Context) ([]Entry, error) {
	entries, _, err := o.doc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load outbox: %w", err)
	}
	return entries, nil
}

// update rewrites the list through fn while holding the lock.
func (o *Outbox) update(ctx context.Context, fn func([]Entry) []Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	entries, err := o.load(ctx)
	if err != nil {
		return err
	}
	return o.doc.Save(ctx, fn(entries))
}

type Submitter interface {
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
}

// retryable is implemented by errors that know whether a resend can help.
type retryable interface {
	Retryable() bool
}

// Retrier resubmits pending entries on a ticker.
type Retrier struct {
	outbox    *Outbox
	sales     Submitter
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewRetrier(outbox *Outbox, sales Submitter, interval time.Duration, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{outbox: outbox, sales: sales, interval: interval, batchSize: 50, logger: logger}
}

func (r *Retrier) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil {
				r.logger.Warn("outbox flush failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// FlushReport counts what one pass did.
type FlushReport struct {
	Delivered int
	Dropped   int
	Failed    int
}

// Flush tries every pending entry once. Delivered entries and entries the
// service rejects for good are removed; the rest stay with a bumped attempt count.
func (r *Retrier) Flush(ctx context.Context) (FlushReport, error) {
	var report FlushReport
	entries, err := r.outbox.Pending(ctx)
	if err != nil {
		return report, err
	}
	if len(entries) > r.batchSize {
		entries = entries[:r.batchSize]
	}

	done := map[string]bool{}
	failed := map[string]string{}
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		_, err := r.sales.CreateSale(ctx, e.Sale)
		if err == nil {
			done[e.ID] = true
			report.Delivered++
			r.logger.Info("outbox sale delivered", zap.String("order_number", e.Sale.OrderNumber))
			continue
		}
		var rerr retryable
		if errors.As(err, &rerr) && !rerr.Retryable() {
			done[e.ID] = true
			report.Dropped++
			r.logger.Warn("outbox sale rejected, dropping", zap.String("order_number", e.Sale.OrderNumber), zap.Error(err))
			continue
		}
		failed[e.ID] = err.Error()
		report.Failed++
		r.logger.Warn("outbox resend failed", zap.String("order_number", e.Sale.OrderNumber), zap.Int("attempts", e.Attempts+1), zap.Error(err))
	}
	if len(done) == 0 && len(failed) == 0 {
		return report, nil
	}

	err = r.outbox.update(ctx, func(current []Entry) []Entry {
		kept := current[:0]
		for _, e := range current {
			if done[e.ID] {
				continue
			}
			if msg, ok := failed[e.ID]; ok {
				e.Attempts++
				e.LastError = msg
			}
			kept = append(kept, e)
		}
		return kept
	})
	return report, err
}
