// Package events announces accepted sales to downstream consumers.
package events

import (
	"context"
	"time"

	"mmdr-storefront/internal/domain"
)

const EventSaleCreated = "sale.created"

type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SaleCreated is published once a sale row is committed.
type SaleCreated struct {
	SaleID      string    `json:"sale_id"`
	OrderNumber string    `json:"order_number"`
	Lines       []Line    `json:"lines"`
	Total       int64     `json:"total"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromSale(s domain.Sale) SaleCreated {
	lines := make([]Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return SaleCreated{
		SaleID:      s.ID,
		OrderNumber: s.OrderNumber,
		Lines:       lines,
		Total:       s.Totals.Total,
		CreatedAt:   s.CreatedAt,
	}
}

type Publisher interface {
	PublishSaleCreated(ctx context.Context, evt SaleCreated) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishSaleCreated(context.Context, SaleCreated) error { return nil }
func (Nop) Close() error                                         { return nil }
