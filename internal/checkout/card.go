package checkout

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"mmdr-storefront/internal/domain"
)

var (
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	digitsRe = regexp.MustCompile(`^\d+$`)
)

// CardDetails is the card sub-form. It is never persisted.
type CardDetails struct {
	Number string `json:"cardNumber"`
	Expiry string `json:"cardExpiry"`
	CVV    string `json:"cardCvv"`
	Holder string `json:"cardholderName"`
}

// Validate runs the per-field card checks against now.
func (c CardDetails) Validate(now time.Time) error {
	verr := domain.NewValidationError()
	if !ValidCardNumber(c.Number) {
		verr.Add("cardNumber", "Número de tarjeta inválido")
	}
	if !ValidExpiry(c.Expiry, now) {
		verr.Add("cardExpiry", "Fecha de vencimiento inválida")
	}
	if !ValidCVV(c.CVV, c.Number) {
		verr.Add("cardCvv", "CVV inválido")
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Holder)) < 2 {
		verr.Add("cardholderName", "Nombre del titular inválido")
	}
	return verr.Err()
}

// Masked keeps only the last four digits.
func (c CardDetails) Masked() string {
	n := cleanNumber(c.Number)
	if len(n) < 4 {
		return "****"
	}
	return "**** **** **** " + n[len(n)-4:]
}

func cleanNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

// ValidCardNumber strips spaces and dashes, then requires 13-19 digits passing Luhn.
func ValidCardNumber(number string) bool {
	n := cleanNumber(number)
	if !digitsRe.MatchString(n) {
		return false
	}
	if len(n) < 13 || len(n) > 19 {
		return false
	}
	return luhn(n)
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidExpiry accepts MM/YY whose month has not fully elapsed at now.
func ValidExpiry(expiry string, now time.Time) bool {
	m := expiryRe.FindStringSubmatch(strings.TrimSpace(expiry))
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	year := 2000 + yy
	if year < now.Year() {
		return false
	}
	if year == now.Year() && month < int(now.Month()) {
		return false
	}
	return true
}

// ValidCVV wants 4 digits for numbers starting 34 or 37, otherwise 3.
func ValidCVV(cvv, number string) bool {
	if !digitsRe.MatchString(cvv) {
		return false
	}
	if fourDigitCVV(cleanNumber(number)) {
		return len(cvv) == 4
	}
	return len(cvv) == 3
}

func fourDigitCVV(n string) bool {
	return strings.HasPrefix(n, "34") || strings.HasPrefix(n, "37")
}

// CardBrand guesses the network from the leading digits.
func CardBrand(number string) string {
	n := cleanNumber(number)
	switch {
	case fourDigitCVV(n):
		return "American Express"
	case strings.HasPrefix(n, "4"):
		return "Visa"
	case len(n) >= 2 && n[0] == '5' && n[1] >= '1' && n[1] <= '5':
		return "Mastercard"
	case strings.HasPrefix(n, "6"):
		return "Discover"
	default:
		return "Tarjeta"
	}
}

// FormatCardNumber keeps digits and groups them by four, up to 19 characters.
func FormatCardNumber(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	var out strings.Builder
	for i := 0; i < len(d); i++ {
		if i > 0 && i%4 == 0 {
			out.WriteByte(' ')
		}
		out.WriteByte(d[i])
	}
	s := out.String()
	if len(s) > 19 {
		s = s[:19]
	}
	return s
}

// FormatExpiry turns "1225" into "12/25".
func FormatExpiry(raw string) string {
	var d strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			d.WriteRune(r)
		}
	}
	v := d.String()
	if len(v) >= 2 {
		end := min(len(v), 4)
		v = v[:2] + "/" + v[2:end]
	}
	return v
}
