package checkout

import (
	"fmt"
	"io"
	"strings"

	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/money"
)

// WriteReceipt prints a plain-text invoice for a confirmed sale.
func WriteReceipt(w io.Writer, sale domain.Sale) error {
	var b strings.Builder
	fmt.Fprintf(&b, "MMDR - Factura %s\n", sale.OrderNumber)
	fmt.Fprintf(&b, "Fecha: %s\n", sale.CreatedAt.Format("02/01/2006"))
	fmt.Fprintf(&b, "Cliente: %s <%s>\n", sale.Customer.Name, sale.Customer.Email)
	a := sale.Customer.Address
	fmt.Fprintf(&b, "Envío a: %s, %s, %s (%s)\n\n", a.Street, a.City, a.Province, a.PostalCode)
	for _, l := range sale.Lines {
		fmt.Fprintf(&b, "%-32s %3d x %12s = %12s\n", truncate(l.Name, 32), l.Quantity, money.Price(l.UnitPrice), money.Price(l.Subtotal))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", money.Price(sale.Totals.Subtotal))
	fmt.Fprintf(&b, "Envío: %s\n", money.Shipping(sale.Totals.Shipping))
	fmt.Fprintf(&b, "TOTAL: %s\n", money.Price(sale.Totals.Total))
	fmt.Fprintf(&b, "Pago: %s (%s) ref %s\n", sale.Payment.Method, sale.Payment.Status, sale.Payment.Reference)
	_, err := io.WriteString(w, b.String())
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
