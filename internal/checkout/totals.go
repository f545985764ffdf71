package checkout

import "mmdr-storefront/internal/domain"

const (
	FreeShippingThreshold int64 = 50000
	FlatShippingFee       int64 = 5000
)

// ComputeTotals applies the flat shipping rule to a cart subtotal.
func ComputeTotals(subtotal int64) domain.Totals {
	shipping := FlatShippingFee
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}
	return domain.Totals{Subtotal: subtotal, Shipping: shipping, Total: subtotal + shipping}
}

// Draft is what the cart page hands to checkout.
type Draft struct {
	Items    []domain.LineItem `json:"items"`
	Subtotal int64             `json:"subtotal"`
	Shipping int64             `json:"envio"`
	Total    int64             `json:"total"`
	Customer *ShippingInfo     `json:"cliente,omitempty"`
}

func NewDraft(items []domain.LineItem) Draft {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Subtotal()
	}
	t := ComputeTotals(subtotal)
	return Draft{Items: items, Subtotal: t.Subtotal, Shipping: t.Shipping, Total: t.Total}
}

func (d Draft) Totals() domain.Totals {
	return domain.Totals{Subtotal: d.Subtotal, Shipping: d.Shipping, Total: d.Total}
}
