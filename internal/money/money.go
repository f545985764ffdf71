// Package money renders whole-peso amounts the way the storefront shows them.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var locale = language.MustParse("es-AR")

// Format groups thousands with dots: 1234567 -> "1.234.567".
func Format(amount int64) string {
	return message.NewPrinter(locale).Sprintf("%d", amount)
}

// Price prefixes Format with a dollar sign.
func Price(amount int64) string {
	return "$" + Format(amount)
}

// Shipping shows a zero fee as "Gratis".
func Shipping(amount int64) string {
	if amount == 0 {
		return "Gratis"
	}
	return Price(amount)
}
