package checkout

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"mmdr-storefront/internal/domain"

	"github.com/google/uuid"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber formats MMDR-YYYYMMDD-XXXXXXXX with an 8 character base36 suffix.
func NewOrderNumber(now time.Time, rng *rand.Rand) string {
	var b strings.Builder
	for range 8 {
		b.WriteByte(base36[rng.Intn(len(base36))])
	}
	return fmt.Sprintf("MMDR-%s-%s", now.Format("20060102"), b.String())
}

// NewPaymentReference returns an opaque transaction reference.
func NewPaymentReference() string {
	return "txn_" + uuid.NewString()
}

// BuildSale assembles the order submitted after a successful payment.
func BuildSale(orderNumber string, info ShippingInfo, draft Draft, reference string, now time.Time) domain.Sale {
	lines := make([]domain.SaleLine, 0, len(draft.Items))
	for _, it := range draft.Items {
		lines = append(lines, domain.SaleLine{
			ProductID: it.ID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}
	return domain.Sale{
		OrderNumber: orderNumber,
		Customer:    info.Customer(),
		Lines:       lines,
		Totals:      draft.Totals(),
		Payment: domain.Payment{
			Method:    info.PaymentMethod,
			Status:    domain.PaymentApproved,
			PaidAt:    now.UTC(),
			Reference: reference,
		},
		Status:    domain.SaleCompleted,
		Channel:   domain.ChannelWeb,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}
